package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"iqccli/internal/spc"
	"iqccli/pkg/contracts/domain"
)

// CSVWriter exports the per-subgroup chart series and the statistics
// summary as CSV.
type CSVWriter struct {
	// BOMPrefix adds a UTF-8 BOM so Excel recognizes the encoding.
	BOMPrefix bool
}

// WriteSubgroups writes the subgroup series of every dimension: one row
// per subgroup with its X-bar/R values and the chart limits.
func (w *CSVWriter) WriteSubgroups(out io.Writer, report *domain.Report) error {
	if err := w.writeBOM(out); err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	defer cw.Flush()

	header := []string{"dimension", "subgroup", "x_bar", "r", "xbar_ucl", "xbar_cl", "xbar_lcl", "r_ucl", "r_cl", "r_lcl"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, dim := range report.Dimensions {
		if dim.Statistics == nil {
			continue
		}
		cl := dim.Statistics.ControlLimits
		for i := range dim.Statistics.Subgroups.XBar {
			record := []string{
				dim.Name,
				strconv.Itoa(i + 1),
				formatFloat(dim.Statistics.Subgroups.XBar[i]),
				formatFloat(dim.Statistics.Subgroups.R[i]),
				formatFloat(cl.XBar.UCL), formatFloat(cl.XBar.CL), formatFloat(cl.XBar.LCL),
				formatFloat(cl.R.UCL), formatFloat(cl.R.CL), formatFloat(cl.R.LCL),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write subgroup record: %w", err)
			}
		}
	}

	return cw.Error()
}

// WriteStatistics writes the per-dimension statistics summary.
func (w *CSVWriter) WriteStatistics(out io.Writer, report *domain.Report) error {
	if err := w.writeBOM(out); err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	defer cw.Flush()

	header := []string{"dimension", "usl", "lsl", "n", "mean", "std_overall", "std_within",
		"cp", "cpk", "pp", "ppk", "cpk_status", "assessment", "risk_level", "ppm_total"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, dim := range report.Dimensions {
		if dim.Statistics == nil {
			continue
		}
		stats := dim.Statistics
		record := []string{
			dim.Name,
			formatFloat(dim.Limits.USL),
			formatFloat(dim.Limits.LSL),
			strconv.Itoa(stats.Count),
			formatFloat(stats.Mean),
			formatFloat(stats.StdOverall),
			formatFloat(stats.StdWithin),
			formatIndex(stats.Cp), formatIndex(stats.Cpk),
			formatIndex(stats.Pp), formatIndex(stats.Ppk),
			stats.CpkStatus,
			string(dim.Assessment.Status),
			string(dim.Assessment.RiskLevel),
			formatFloat(dim.Assessment.PPMTotal),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write statistics record: %w", err)
		}
	}

	return cw.Error()
}

// WriteSubgroupsFile is WriteSubgroups against a file path, creating
// parent directories as needed.
func (w *CSVWriter) WriteSubgroupsFile(filePath string, report *domain.Report) error {
	return w.writeFile(filePath, report, w.WriteSubgroups)
}

// WriteStatisticsFile is WriteStatistics against a file path.
func (w *CSVWriter) WriteStatisticsFile(filePath string, report *domain.Report) error {
	return w.writeFile(filePath, report, w.WriteStatistics)
}

func (w *CSVWriter) writeFile(filePath string, report *domain.Report, write func(io.Writer, *domain.Report) error) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer file.Close()

	return write(file, report)
}

func (w *CSVWriter) writeBOM(out io.Writer) error {
	if !w.BOMPrefix {
		return nil
	}
	if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatIndex(v spc.Index) string {
	if v.IsInfinite() {
		return "INF"
	}
	return formatFloat(float64(v))
}

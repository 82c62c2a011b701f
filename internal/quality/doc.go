// Package quality implements the advisory data-quality gate that runs
// alongside the SPC engine.
//
// The gate never blocks or alters the authoritative capability math: it
// flags suspect values (3-sigma outlier detection), repairs common OCR
// artifacts on explicit request (decimal-point inference, unit-noise
// stripping, lookalike-character repair, precision rounding), and tests
// the normality assumption behind the capability indices (Shapiro-Wilk
// and Anderson-Darling).
//
// All functions are pure: input series are never mutated and corrected
// data is returned as a new series with a full audit trail.
package quality

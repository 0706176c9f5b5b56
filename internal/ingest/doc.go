// Package ingest reads chromatography exports into raw peak tables.
//
// Three sources are supported: instrument workbooks (.xlsx, one sheet per
// injection), per-sample CSV files named muestra_<name>_raw.csv, and the
// metadata.json file that describes an experiment directory. Column captions
// are matched case-insensitively and unit suffixes such as "(min)" are
// ignored. Values are returned untyped; numeric coercion belongs to the
// chromatography package.
package ingest

// Package dataprocessing turns ingested tables into returns.
//
// The steps run in this order for each analysis:
//
//  1. ColumnRepairer recovers readable header names from mojibake and raw
//     bytes, falling back to column_<i> placeholders.
//  2. Clean drops rows whose share of missing cells reaches the threshold.
//  3. GroupByEntity builds an EntityTimeSeries keyed by the identifier
//     column (代码, code or symbol) and stamped with each file's date.
//  4. ComputeReturns finds the closing-price column per entity and computes
//     (end-start)/start*100 over the first and last valid values. Rank
//     orders the records for the report.
//
// SummarizeCategory produces the bounded statistics handed to the narrative
// step in place of raw data.
//
// Mojibake detection is a substring heuristic over known artifacts. Some
// corrupted names are not detected and pass through unchanged.
package dataprocessing

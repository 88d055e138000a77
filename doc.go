// Package skinledger keeps the valuation ledger of a collection of tradable
// virtual goods up to date.
//
// The ledger is a list of rows, one per holding, recording what was paid for
// an item and what it is worth now. A reconciliation run asks a PriceSource
// for the current value of each row, derives the change against the value
// stored before the run and merges the results back into the rows:
//   - Rows holding the same item share a single price query (see Cache).
//   - A row whose price cannot be resolved keeps its stored value and is
//     flagged as not updated, the run carries on.
//   - The expected profit of unsold rows is recomputed after every run, and
//     its change against the opening value is reported.
//
// The price sources live in the steam (live market queries) and cstrader
// (bulk snapshot index) packages, the workbook persistence in store. This
// package serves as the foundational logic for the `skl` command-line tool.
package skinledger

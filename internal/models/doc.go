// Package models defines the watchlist document and the records persisted alongside it.
//
// The package contains two categories of types:
//
// 1. The remote document, always read and written whole:
//   - [Document] : movies and series lists, the unit of persistence
//   - [Item] : one title with its IMDb metadata, personal rating and notes
//
// 2. Local records kept in SQLite:
//   - [Title] : OMDB metadata cached by IMDb id
//   - [SaveRecord] : one entry per save cycle, with the revision it produced
//
// [ParseYear] and [IsDuplicate] are the helpers used for ordering and de-duplication.
package models

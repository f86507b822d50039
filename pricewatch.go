// Package pricewatch tracks retailer prices for user-defined products.
// On a recurring cadence it visits every tracked URL, extracts a price
// from the page markup, updates the product's current price and appends
// a row to its price history.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, http/).
package pricewatch

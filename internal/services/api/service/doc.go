// Package service implements the API use cases over the storage contracts:
// the country and product catalog, tariff maintenance and pricing, and
// account management.
package service

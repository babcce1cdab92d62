// Package rental defines the domain types shared across the bot: tenants,
// meters, readings and the well-known settings keys. It has no behavior
// beyond small helpers; all persistence lives behind pkg/storage.
package rental

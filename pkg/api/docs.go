// Package api serves the indexed listings and reviews over HTTP.
// @title Ethereum Bazaar API
// @version 1.0
// @description Read API over marketplace listings, actions and reviews indexed from the chain
// @contact.name API Support
// @contact.url https://github.com/BuidlGuidl/ethereum-bazaar
// @license.name MIT
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api

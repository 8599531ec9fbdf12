// Package api provides REST API handlers for NFTIndexor
// @title NFTIndexor API
// @version 1.0
// @description REST API for querying NFT collection entities derived by NFTIndexor
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/NFTIndexor
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @basePath /api/v1
// @schemes http https
package api

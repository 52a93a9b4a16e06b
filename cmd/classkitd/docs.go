package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           classkitd API
// @version         1.0
// @description     HTTP API for generating and sharing classroom materials with a local model.
//
// @contact.name   classkitd maintainers
// @contact.url    https://github.com/your-org/classkitd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

// Package docs Prompt Maker API documentation
package docs

import "github.com/swaggo/swag"

// Swagger documentation info
// @title Prompt Maker API
// @version 1.0
// @description Share, moderate, vote on and discuss AI prompts
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@promptmaker.dev

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// @tag.name auth
// @tag.description Registration, login and token refresh
// @tag.name auth-password
// @tag.description Password change and reset
// @tag.name users
// @tag.description Profile and avatar
// @tag.name prompts
// @tag.description Prompt library and moderation preview
// @tag.name votes
// @tag.description Prompt voting
// @tag.name comments
// @tag.description Prompt discussion
// @tag.name feed
// @tag.description Live websocket feed

// docTemplate is replaced by `swag init -g docs/swagger.go`; this stub keeps /swagger serving until then
const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Prompt Maker API",
	Description:      "Share, moderate, vote on and discuss AI prompts",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

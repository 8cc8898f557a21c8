package server

//go:generate swag init -g internal/server/swagger.go -o internal/server/docs/swagger

// @title shutter API
// @version 0.1
// @description Capture screenshots of web pages through a headless browser and download them as PNG.
// @contact.name shutter maintainers
// @contact.url https://github.com/raysh454/shutter
// @BasePath /

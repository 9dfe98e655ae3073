package main

//go:generate swag init -g cmd/signalfeed/main.go -o docs

// @title Signal Feed API
// @version 1.0
// @description Deduplicated trading signals from bot analyzers and admins, ranked into a consumer feed.
// @BasePath /

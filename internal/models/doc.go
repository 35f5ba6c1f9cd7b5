// Package models lists the OpenAI models an API key can use and groups
// them by the apps that take a model setting: text to speech on one side,
// translation and sentiment on the other.
package models

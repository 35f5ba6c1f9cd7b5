// Package translation translates text and text files with OpenAI or
// Gemini models. Source language is detected by the model; target
// languages are given by display name (한국어, 영어, 일본어) or code.
// Repeated requests can be served from a cache.
package translation

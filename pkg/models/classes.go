package models

import "strings"

// Class describes how one detected object category is presented: the display
// name written to the detection record and the sound the alert popup plays.
type Class struct {
	DisplayName string
	Sound       string
}

// DefaultClass is used for categories missing from the catalogue.
var DefaultClass = Class{DisplayName: "indefinida", Sound: "SonidoAux.wav"}

var classCatalogue = map[string]Class{
	"bicycle":    {DisplayName: "bicicleta", Sound: "Sonido1.wav"},
	"motorcycle": {DisplayName: "motocicleta", Sound: "Sonido2.wav"},
	"person":     {DisplayName: "peaton", Sound: "Sonido3.wav"},
	"signal":     {DisplayName: "sustancia peligrosa", Sound: "Sonido4.wav"},
	"truck":      {DisplayName: "camión", Sound: "Sonido5.wav"},
}

// LookupClass resolves a detector category, falling back to DefaultClass for
// anything unknown. Matching is case-insensitive.
func LookupClass(category string) Class {
	if c, ok := classCatalogue[strings.ToLower(category)]; ok {
		return c
	}
	return DefaultClass
}

// Package models reshapes provider JSON into plain display structs.
//
// Mapping is done by pure functions over decoded payloads. No behavior
// varies by type beyond field presence, so there is no hierarchy: each
// struct is a data carrier for the hosting page to render.
package models

// Package simtypes holds the value types shared by every package in the
// edge-computing placement core: node/service/flow identifiers, the event
// status and admission reason enums, and the Service catalog record.
package simtypes

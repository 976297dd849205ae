// Package models holds the GORM persistence models and their conversions
// to and from domain aggregates.
package models

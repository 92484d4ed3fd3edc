// package models defines the data model for the track resolution and sync engine
package models

// Package blog defines the core types and collaborator interfaces shared by
// the keyword expansion, generation, publishing, and job subsystems.
package blog

package api

import (
	"github.com/JonathanSaleh123/boss-hunter/internal/registry"
	"github.com/JonathanSaleh123/boss-hunter/internal/storage"
)

// Handler bundles the dependencies of the REST endpoints.
type Handler struct {
	repo     storage.Repository
	registry *registry.Registry
}

func NewHandler(repo storage.Repository, reg *registry.Registry) *Handler {
	return &Handler{repo: repo, registry: reg}
}

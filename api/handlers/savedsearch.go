package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trustwork/discovery/db/datastore"
	"github.com/trustwork/discovery/logger"
	"github.com/trustwork/discovery/services/savedsearch"
	"github.com/trustwork/discovery/services/search"
	"github.com/trustwork/discovery/validation"
)

// ContextKeyPrincipal is where the principal middleware stores the caller
// identity.
const ContextKeyPrincipal = "principal_id"

func principalFrom(c *gin.Context) string {
	principalID := c.GetString(ContextKeyPrincipal)
	if principalID == "" {
		return datastore.PrincipalAnonymous
	}
	return principalID
}

type CreateSavedSearchRequest struct {
	Name           string         `json:"name" validate:"required,max=80"`
	SearchType     string         `json:"search_type" validate:"required,oneof=jobs gigs freelancers"`
	Query          string         `json:"query" validate:"required"`
	Filters        search.Filters `json:"filters"`
	AlertEnabled   bool           `json:"alert_enabled"`
	AlertFrequency string         `json:"alert_frequency" validate:"omitempty,oneof=off daily weekly"`
}

type UpdateSavedSearchRequest struct {
	Name           *string         `json:"name" validate:"omitempty,max=80"`
	Filters        *search.Filters `json:"filters"`
	AlertEnabled   *bool           `json:"alert_enabled"`
	AlertFrequency *string         `json:"alert_frequency" validate:"omitempty,oneof=off daily weekly"`
}

type ListSavedSearchesRequest struct {
	SearchType string `form:"type" json:"type" validate:"omitempty,oneof=jobs gigs freelancers"`
}

func SetupSavedSearches(router *gin.Engine, logger logger.Logger, store *savedsearch.Store, validator *validation.Validator) {
	router.POST("/api/saved-searches", handleCreateSavedSearch(store, logger, validator))
	router.GET("/api/saved-searches", handleListSavedSearches(store, logger, validator))
	router.PATCH("/api/saved-searches/:id", handleUpdateSavedSearch(store, logger, validator))
	router.DELETE("/api/saved-searches/:id", handleDeleteSavedSearch(store, logger))
}

// requireOwner rejects anonymous callers; saved searches are owner-scoped.
func requireOwner(c *gin.Context) (string, bool) {
	principalID := principalFrom(c)
	if principalID == datastore.PrincipalAnonymous {
		c.Abort()
		writeError(c, http.StatusUnauthorized, codeUnauthorized,
			"sign in to manage saved searches", nil, newMetadata())
		return "", false
	}
	return principalID, true
}

func handleCreateSavedSearch(store *savedsearch.Store, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := requireOwner(c)
		if !ok {
			return
		}

		request := CreateSavedSearchRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract saved search body", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusBadRequest, codeInvalidInput,
				"failed to extract request body parameters", nil, newMetadata())
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate saved search request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusBadRequest, codeInvalidInput, err.Error(), nil, newMetadata())
			return
		}

		savedSearch, err := store.Create(ownerID, savedsearch.Input{
			Name:           request.Name,
			SearchType:     savedsearch.Type(request.SearchType),
			RawQuery:       request.Query,
			Filters:        request.Filters,
			AlertEnabled:   request.AlertEnabled,
			AlertFrequency: savedsearch.Frequency(request.AlertFrequency),
		})
		if err != nil {
			writeStoreError(c, logger, err)
			return
		}

		writeSuccess(c, http.StatusCreated, savedSearch, newMetadata())
	}
}

func handleListSavedSearches(store *savedsearch.Store, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := requireOwner(c)
		if !ok {
			return
		}

		request := ListSavedSearchesRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract saved search list params", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusBadRequest, codeInvalidInput,
				"failed to extract request parameters", nil, newMetadata())
			return
		}

		if err := validator.Validate(request); err != nil {
			c.Abort()
			writeError(c, http.StatusBadRequest, codeInvalidInput, err.Error(), nil, newMetadata())
			return
		}

		var searchType *savedsearch.Type
		if request.SearchType != "" {
			t := savedsearch.Type(request.SearchType)
			searchType = &t
		}

		savedSearches, err := store.List(ownerID, searchType)
		if err != nil {
			writeStoreError(c, logger, err)
			return
		}

		writeSuccess(c, http.StatusOK, savedSearches, newMetadata())
	}
}

func handleUpdateSavedSearch(store *savedsearch.Store, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := requireOwner(c)
		if !ok {
			return
		}

		request := UpdateSavedSearchRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract saved search patch body", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusBadRequest, codeInvalidInput,
				"failed to extract request body parameters", nil, newMetadata())
			return
		}

		if err := validator.Validate(request); err != nil {
			c.Abort()
			writeError(c, http.StatusBadRequest, codeInvalidInput, err.Error(), nil, newMetadata())
			return
		}

		patch := savedsearch.Patch{
			Name:         request.Name,
			Filters:      request.Filters,
			AlertEnabled: request.AlertEnabled,
		}
		if request.AlertFrequency != nil {
			frequency := savedsearch.Frequency(*request.AlertFrequency)
			patch.AlertFrequency = &frequency
		}

		savedSearch, err := store.Update(ownerID, c.Param("id"), patch)
		if err != nil {
			writeStoreError(c, logger, err)
			return
		}

		writeSuccess(c, http.StatusOK, savedSearch, newMetadata())
	}
}

func handleDeleteSavedSearch(store *savedsearch.Store, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := requireOwner(c)
		if !ok {
			return
		}

		if err := store.Delete(ownerID, c.Param("id")); err != nil {
			writeStoreError(c, logger, err)
			return
		}

		c.JSON(http.StatusNoContent, nil)
	}
}

func writeStoreError(c *gin.Context, logger logger.Logger, err error) {
	c.Abort()

	switch {
	case errors.Is(err, savedsearch.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, codeInvalidInput, err.Error(), nil, newMetadata())
	case errors.Is(err, savedsearch.ErrNotFound), errors.Is(err, savedsearch.ErrNotOwner):
		// Ownership violations look identical to missing entries so ids
		// cannot be probed.
		writeError(c, http.StatusNotFound, codeNotFound, "saved search not found", nil, newMetadata())
	default:
		logger.Error("saved search operation failed", "err", err.Error())
		writeError(c, http.StatusInternalServerError, codeInternal,
			"something went wrong, please retry", nil, newMetadata())
	}
}

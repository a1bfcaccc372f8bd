package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trustwork/discovery/logger"
	"github.com/trustwork/discovery/services/search"
	"github.com/trustwork/discovery/validation"
)

type SearchRequest struct {
	Query      string   `form:"query" json:"query"`
	Categories string   `form:"categories" json:"categories" validate:"valid_categories"`
	Location   string   `form:"location" json:"location"`
	Remote     *bool    `form:"remote" json:"remote"`
	Verified   *bool    `form:"verified" json:"verified"`
	BudgetMin  *int     `form:"budget_min" json:"budget_min"`
	BudgetMax  *int     `form:"budget_max" json:"budget_max"`
	MinRating  *float64 `form:"min_rating" json:"min_rating"`
	Skills     string   `form:"skills" json:"skills"`
	Page       int      `form:"page" json:"page" validate:"min=0"`
	PageSize   int      `form:"page_size" json:"page_size" validate:"min=0,max=50"`
}

func (r *SearchRequest) toQuery(principalID string) search.Query {
	return search.Query{
		RawQuery:    r.Query,
		Categories:  splitCategories(r.Categories),
		PrincipalID: principalID,
		Page:        r.Page,
		PageSize:    r.PageSize,
		Filters: search.Filters{
			Location:  r.Location,
			Remote:    r.Remote,
			Verified:  r.Verified,
			BudgetMin: r.BudgetMin,
			BudgetMax: r.BudgetMax,
			MinRating: r.MinRating,
			Skills:    splitList(r.Skills),
		},
	}
}

func SetupSearch(router *gin.Engine, logger logger.Logger, orchestrator *search.Orchestrator, validator *validation.Validator) {
	router.GET("/api/search", handleSearch(orchestrator, logger, validator))
}

func handleSearch(orchestrator *search.Orchestrator, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusBadRequest, string(search.CodeInvalidQuery),
				"failed to extract request parameters", nil, newMetadata())
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusBadRequest, string(search.CodeInvalidQuery),
				err.Error(), nil, newMetadata())
			return
		}

		result := orchestrator.Run(c.Request.Context(), request.toQuery(principalFrom(c)))

		metadata := Metadata{
			RequestID:          result.RequestID,
			Timestamp:          result.Timestamp,
			RateLimitRemaining: &result.RateLimitRemaining,
		}

		if result.Err != nil {
			writeError(c, statusForCode(result.Err.Code), string(result.Err.Code),
				result.Err.Message, result.Err.Details, metadata)
			return
		}

		writeSuccess(c, http.StatusOK, result.Aggregated, metadata)
	}
}

func statusForCode(code search.ErrorCode) int {
	switch code {
	case search.CodeInvalidQuery:
		return http.StatusBadRequest
	case search.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case search.CodeSearchTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func splitCategories(raw string) []search.Category {
	var categories []search.Category
	for _, name := range splitList(raw) {
		categories = append(categories, search.Category(strings.ToLower(name)))
	}
	return categories
}

func splitList(raw string) []string {
	var values []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}

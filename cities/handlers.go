package cities

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/cityweather-go/apperror"
	"github.com/user/cityweather-go/auth"
	"github.com/user/cityweather-go/web"
)

// Handlers serves the city pages and the JSON weather API.
type Handlers struct {
	service *Service
	pages   *web.Pages
	log     *zap.Logger
}

// NewHandlers creates the city handler set.
func NewHandlers(service *Service, pages *web.Pages, log *zap.Logger) *Handlers {
	return &Handlers{service: service, pages: pages, log: log}
}

// HandleHome renders the landing page with the cities visible to the
// current identity, authenticated or anonymous.
func (h *Handlers) HandleHome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())

		list, err := h.service.ListVisible(r.Context(), user)
		if err != nil {
			h.log.Error("failed to list cities", zap.Error(err))
			h.pages.Render(w, http.StatusInternalServerError, "index.html", map[string]any{
				"User":  user,
				"Error": "failed to load cities",
			})
			return
		}

		q := r.URL.Query()
		h.pages.Render(w, http.StatusOK, "index.html", map[string]any{
			"User":                  user,
			"Cities":                list,
			"Now":                   time.Now().UTC(),
			"UpdateIntervalMinutes": h.service.UpdateIntervalMinutes(),
			"Error":                 q.Get("error"),
			"Success":               q.Get("success"),
			"Info":                  q.Get("info"),
		})
	}
}

// HandleAdd processes the add-city form.
func (h *Handlers) HandleAdd() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())

		if err := r.ParseForm(); err != nil {
			redirectWithFlash(w, r, "error", "invalid form submission")
			return
		}
		name := r.PostFormValue("name")
		latitude, latErr := strconv.ParseFloat(r.PostFormValue("latitude"), 64)
		longitude, lonErr := strconv.ParseFloat(r.PostFormValue("longitude"), 64)
		if name == "" || latErr != nil || lonErr != nil {
			redirectWithFlash(w, r, "error", "city name and numeric coordinates are required")
			return
		}

		if _, err := h.service.Add(r.Context(), user, name, latitude, longitude); err != nil {
			if apperror.IsConflict(err) {
				redirectWithFlash(w, r, "error", "City already exists")
				return
			}
			h.log.Error("failed to add city", zap.Error(err))
			redirectWithFlash(w, r, "error", "failed to add city")
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandleRemove processes the remove-city form. A city the caller does not
// own is left untouched without complaint.
func (h *Handlers) HandleRemove() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())

		cityID, err := strconv.Atoi(chi.URLParam(r, "cityID"))
		if err != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		if _, err := h.service.Remove(r.Context(), user, cityID); err != nil {
			h.log.Error("failed to remove city", zap.Error(err))
			redirectWithFlash(w, r, "error", "failed to remove city")
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandleReset replaces the caller's city list with the defaults.
func (h *Handlers) HandleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())

		created, err := h.service.Reset(r.Context(), user)
		if err != nil {
			h.log.Error("failed to reset cities", zap.Error(err))
			redirectWithFlash(w, r, "error", "failed to reset cities")
			return
		}
		redirectWithFlash(w, r, "success", fmt.Sprintf("Restored %d default cities", len(created)))
	}
}

// HandleUpdateAll runs the batch weather refresh for the caller's cities.
// AJAX callers sending Accept: application/json get a JSON summary; plain
// form posts get a redirect with a flash message.
func (h *Handlers) HandleUpdateAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())
		wantsJSON := r.Header.Get("Accept") == "application/json"

		updated, err := h.service.RefreshWeather(r.Context(), user)
		if err != nil {
			h.log.Error("weather refresh failed", zap.Error(err))
			if wantsJSON {
				auth.WriteError(w, r, err)
				return
			}
			redirectWithFlash(w, r, "error", "Failed to update weather")
			return
		}

		if updated == 0 {
			if wantsJSON {
				auth.WriteJSON(w, http.StatusOK, map[string]any{
					"success": true, "message": "No cities need update", "updated": 0,
				})
				return
			}
			redirectWithFlash(w, r, "info", "No cities need update")
			return
		}

		if wantsJSON {
			auth.WriteJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"message": fmt.Sprintf("Updated %d cities", updated),
				"updated": updated,
			})
			return
		}
		redirectWithFlash(w, r, "success", fmt.Sprintf("Updated %d cities", updated))
	}
}

// HandleCityWeather godoc
// @Summary Get a city's last-known weather
// @Tags Weather
// @Produce json
// @Param cityID path int true "City ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperror.ErrorResponse
// @Router /api/weather/{cityID} [get]
func (h *Handlers) HandleCityWeather() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cityID, err := strconv.Atoi(chi.URLParam(r, "cityID"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid city id", err))
			return
		}

		city, err := h.service.Get(r.Context(), cityID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, map[string]any{
			"city_id":     city.ID,
			"city_name":   city.Name,
			"temperature": city.Temperature,
			"latitude":    city.Latitude,
			"longitude":   city.Longitude,
			"updated_at":  city.UpdatedAt,
		})
	}
}

// HandleRefreshCity godoc
// @Summary Refresh a single city's weather now
// @Tags Weather
// @Produce json
// @Param cityID path int true "City ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperror.ErrorResponse
// @Failure 502 {object} apperror.ErrorResponse
// @Router /api/weather/{cityID} [post]
func (h *Handlers) HandleRefreshCity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cityID, err := strconv.Atoi(chi.URLParam(r, "cityID"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("invalid city id", err))
			return
		}

		city, err := h.service.RefreshOne(r.Context(), cityID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"city_id":     city.ID,
			"city_name":   city.Name,
			"temperature": city.Temperature,
			"updated_at":  city.UpdatedAt,
		})
	}
}

// HandleTestWeather godoc
// @Summary Fetch current weather for arbitrary coordinates
// @Tags Weather
// @Produce json
// @Param latitude query number true "Latitude"
// @Param longitude query number true "Longitude"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperror.ErrorResponse
// @Router /api/test-weather [get]
func (h *Handlers) HandleTestWeather() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latitude, latErr := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
		longitude, lonErr := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
		if latErr != nil || lonErr != nil {
			auth.WriteError(w, r, apperror.NewBadRequestError("latitude and longitude query parameters are required", nil))
			return
		}

		temperature, err := h.service.weather.Fetch(r.Context(), latitude, longitude)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		auth.WriteJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"latitude":    latitude,
			"longitude":   longitude,
			"temperature": temperature,
			"unit":        "°C",
		})
	}
}

// redirectWithFlash sends the browser home with a one-shot message in the
// query string; the home page picks it up for display.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	http.Redirect(w, r, "/?"+kind+"="+url.QueryEscape(message), http.StatusSeeOther)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/pkg/logger"
)

const defaultWinsLimit = 50

// Roles allowed on admin routes.
var adminRoles = map[string]bool{"admin": true, "service_role": true}

// AdminClaims is the bearer token payload issued by the auth provider.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth checks HS256 bearer tokens on admin routes.
type AdminAuth struct {
	secret []byte
}

// NewAdminAuth creates the middleware. An empty secret disables admin routes.
func NewAdminAuth(secret string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret)}
}

type claimsKey struct{}

// ClaimsFrom returns the admin claims stored by Require.
func ClaimsFrom(ctx context.Context) (*AdminClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*AdminClaims)
	return c, ok
}

// Require wraps next with bearer token validation.
func (a *AdminAuth) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.admin_auth"
		if len(a.secret) == 0 {
			writeFailure(w, NewKind(op, ErrAdminDisabled))
			return
		}
		claims, err := a.validate(r.Header.Get("Authorization"))
		if err != nil {
			writeFailure(w, WrapKind(op, ErrUnauthorized, err))
			return
		}
		if !adminRoles[claims.Role] {
			writeFailure(w, NewKind(op, ErrForbidden))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

func (a *AdminAuth) validate(header string) (*AdminClaims, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, errors.New("invalid authorization format")
	}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), &AdminClaims{},
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AdminHandler serves the game-settings administration routes.
type AdminHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies, log logger.Logger) *AdminHandler {
	return &AdminHandler{deps: deps, log: log}
}

type settingsResponse struct {
	Settings []model.Setting `json:"settings"`
}

type winsResponse struct {
	Wins []model.Win `json:"wins"`
}

// settingRequest carries a partial update; absent fields keep their value.
type settingRequest struct {
	DiscountRate     *int    `json:"discount_rate"`
	IsActive         *bool   `json:"is_active"`
	PromoCode        *string `json:"promo_code"`
	DifficultyTarget *int    `json:"difficulty_target"`
	MinAccuracy      *int    `json:"min_accuracy"`
}

func (req settingRequest) apply(s model.Setting) model.Setting {
	if req.DiscountRate != nil {
		s.DiscountRate = *req.DiscountRate
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
	if req.PromoCode != nil {
		s.PromoCode = *req.PromoCode
	}
	if req.DifficultyTarget != nil {
		s.DifficultyTarget = req.DifficultyTarget
	}
	if req.MinAccuracy != nil {
		s.MinAccuracy = req.MinAccuracy
	}
	return s
}

// HandleListSettings handles GET /admin/game-settings.
func (h *AdminHandler) HandleListSettings(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_settings"
	list, err := h.deps.Settings(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: list})
}

// HandleUpsertSetting handles PUT /admin/game-settings/{key}.
func (h *AdminHandler) HandleUpsertSetting(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_setting"
	var req settingRequest
	if err := decode(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	key := r.PathValue("key")
	current := model.Setting{GameKey: key}
	list, err := h.deps.Settings(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	for _, s := range list {
		if s.GameKey == key {
			current = s
			break
		}
	}

	saved, err := h.deps.UpsertSetting(r.Context(), req.apply(current))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	fields := []logger.Field{logger.String("game", saved.GameKey)}
	if claims, ok := ClaimsFrom(r.Context()); ok {
		fields = append(fields, logger.String("subject", claims.Subject), logger.String("role", claims.Role))
	}
	h.log.Info(r.Context(), "game setting updated", fields...)
	writeJSON(w, http.StatusOK, saved)
}

// HandleRecentWins handles GET /admin/wins?limit=N.
func (h *AdminHandler) HandleRecentWins(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent_wins"
	limit := defaultWinsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = n
	}
	wins, err := h.deps.RecentWins(r.Context(), limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, winsResponse{Wins: wins})
}

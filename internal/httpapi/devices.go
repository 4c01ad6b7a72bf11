package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"biosync/internal/sqlcgen"
)

var punchDirections = map[string]struct{}{"AUTO": {}, "IN": {}, "OUT": {}}

type device struct {
	ID                     string    `json:"id"`
	DeviceID               string    `json:"device_id"`
	IPAddress              *string   `json:"ip_address"`
	Port                   int32     `json:"port"`
	PunchDirection         string    `json:"punch_direction"`
	ClearFromDeviceOnFetch bool      `json:"clear_from_device_on_fetch"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type deviceCreate struct {
	DeviceID               string  `json:"device_id"`
	IPAddress              *string `json:"ip_address,omitempty"`
	Port                   *int32  `json:"port,omitempty"`
	PunchDirection         *string `json:"punch_direction,omitempty"`
	ClearFromDeviceOnFetch bool    `json:"clear_from_device_on_fetch"`
}

func toDevice(d sqlcgen.BiometricDevice) device {
	return device{
		ID:                     d.ID,
		DeviceID:               d.DeviceID,
		IPAddress:              d.IPAddress,
		Port:                   d.Port,
		PunchDirection:         d.PunchDirection,
		ClearFromDeviceOnFetch: d.ClearFromDeviceOnFetch,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

// validIPv4 accepts four dot-separated integers in 0..255.
func validIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if !h.ensureDevices(w) {
		return
	}

	rows, err := h.devices.ListBiometricDevices(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list devices failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list devices", nil)
		return
	}

	resp := make([]device, 0, len(rows))
	for _, d := range rows {
		resp = append(resp, toDevice(d))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceCreate
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	arg := sqlcgen.CreateBiometricDeviceParams{
		DeviceID:               strings.TrimSpace(req.DeviceID),
		Port:                   4370,
		PunchDirection:         "AUTO",
		ClearFromDeviceOnFetch: req.ClearFromDeviceOnFetch,
	}
	if arg.DeviceID == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "device_id is required", nil)
		return
	}
	if req.IPAddress != nil {
		ip := strings.TrimSpace(*req.IPAddress)
		if !validIPv4(ip) {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "Invalid IP Address format", map[string]any{"ip_address": *req.IPAddress})
			return
		}
		arg.IPAddress = &ip
	}
	if req.Port != nil {
		if *req.Port < 1 || *req.Port > 65535 {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "port must be between 1 and 65535", map[string]any{"port": *req.Port})
			return
		}
		arg.Port = *req.Port
	}
	if req.PunchDirection != nil {
		pd := strings.ToUpper(strings.TrimSpace(*req.PunchDirection))
		if _, ok := punchDirections[pd]; !ok {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "punch_direction must be AUTO, IN or OUT", map[string]any{"punch_direction": *req.PunchDirection})
			return
		}
		arg.PunchDirection = pd
	}

	if !h.ensureDevices(w) {
		return
	}

	row, err := h.devices.CreateBiometricDevice(r.Context(), arg)
	if err != nil {
		if isUniqueViolation(err) {
			h.writeError(w, http.StatusConflict, "conflict", "device already registered", map[string]any{"device_id": arg.DeviceID})
			return
		}
		h.log.Error().Err(err).Str("device_id", arg.DeviceID).Msg("create device failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to create device", nil)
		return
	}

	h.writeJSON(w, http.StatusCreated, toDevice(row))
}

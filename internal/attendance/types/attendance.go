package types

type ClockInRequest struct {
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=OFFICE WFH LEAVE office wfh leave"`
}

type ConvertModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=OFFICE WFH LEAVE office wfh leave"`
}

type BulkMarkRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=OFFICE WFH LEAVE office wfh leave"`
}

// RecordSnapshot is the serialisable view of one attendance record.
// Instants are RFC 3339 strings in the policy's timezone.
type RecordSnapshot struct {
	ID                 string   `json:"id"`
	UserID             string   `json:"user_id"`
	Date               string   `json:"date"`
	LoginTime          *string  `json:"login_time"`
	LogoutTime         *string  `json:"logout_time"`
	Mode               Mode     `json:"mode"`
	Status             Status   `json:"status"`
	EarlySignInMinutes *int     `json:"early_sign_in_minutes"`
	LateSignInMinutes  *int     `json:"late_sign_in_minutes"`
	EarlyLogoutMinutes *int     `json:"early_logout_minutes"`
	LateLogoutMinutes  *int     `json:"late_logout_minutes"`
	TotalHours         *float64 `json:"total_hours"`
	LunchStart         *string  `json:"lunch_start"`
	LunchEnd           *string  `json:"lunch_end"`
	LastActivityTime   *string  `json:"last_activity_time"`
	WFHActivityPings   int      `json:"wfh_activity_pings"`
	EditedBy           *string  `json:"edited_by,omitempty"`
	EditedAt           *string  `json:"edited_at,omitempty"`
}

type LivenessSnapshot struct {
	LastActivity     *string `json:"last_activity"`
	NextHeartbeatDue *string `json:"next_heartbeat_due"`
	Inactive         bool    `json:"inactive"`
}

type TodayResponse struct {
	Record   RecordSnapshot    `json:"record"`
	Liveness *LivenessSnapshot `json:"liveness,omitempty"`
}

type BulkMarkError struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

type BulkMarkResponse struct {
	Date    string          `json:"date"`
	Mode    Mode            `json:"mode"`
	Success int             `json:"success"`
	Failed  int             `json:"failed"`
	Errors  []BulkMarkError `json:"errors"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Package rest implements the remote document-store port against the
// felicare sync API: JSON documents for sessions plus denormalized
// daily and monthly summary rollups.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

const defaultTimeout = 12 * time.Second

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
}

var _ ports.RemoteStore = (*Client)(nil)

type summaryDocument struct {
	Period                 string              `json:"period"`
	MedicationSessionCount int                 `json:"medication_session_count"`
	FluidSessionCount      int                 `json:"fluid_session_count"`
	MedicationNames        []string            `json:"medication_names"`
	TotalDoseGiven         float64             `json:"total_dose_given"`
	TotalFluidVolumeGiven  float64             `json:"total_fluid_volume_given"`
	MedicationTimes        map[string][]string `json:"medication_times,omitempty"`
	CompletedTimes         map[string][]string `json:"completed_times,omitempty"`
}

type sessionDocument struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	SubjectID      string  `json:"subject_id"`
	MedicationName string  `json:"medication_name,omitempty"`
	DoseGiven      float64 `json:"dose_given,omitempty"`
	DoseUnit       string  `json:"dose_unit,omitempty"`
	VolumeGiven    float64 `json:"volume_given,omitempty"`
	Completed      bool    `json:"completed"`
	LoggedAt       string  `json:"logged_at"`
	ScheduleID     string  `json:"schedule_id,omitempty"`
	ScheduledTime  string  `json:"scheduled_time,omitempty"`
}

type batchRequest struct {
	Medications []sessionDocument `json:"medications,omitempty"`
	Fluids      []sessionDocument `json:"fluids,omitempty"`
}

type sessionListResponse struct {
	Sessions []sessionDocument `json:"sessions"`
}

func (c *Client) DailySummary(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, date string) (domain.RemoteSummary, bool, error) {
	path := fmt.Sprintf("/v1/owners/%s/subjects/%s/summaries/daily/%s",
		url.PathEscape(string(owner)), url.PathEscape(string(subject)), url.PathEscape(date))
	return c.fetchSummary(ctx, path)
}

func (c *Client) MonthlySummary(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, month string) (domain.RemoteSummary, bool, error) {
	path := fmt.Sprintf("/v1/owners/%s/subjects/%s/summaries/monthly/%s",
		url.PathEscape(string(owner)), url.PathEscape(string(subject)), url.PathEscape(month))
	return c.fetchSummary(ctx, path)
}

func (c *Client) ListMedicationSessions(ctx context.Context, owner domain.OwnerID, subject domain.SubjectID, date, medicationName string) ([]domain.MedicationSession, error) {
	query := url.Values{}
	query.Set("date", date)
	if medicationName != "" {
		query.Set("medication", medicationName)
	}
	path := fmt.Sprintf("/v1/owners/%s/subjects/%s/sessions/medication?%s",
		url.PathEscape(string(owner)), url.PathEscape(string(subject)), query.Encode())

	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list medication sessions: unexpected status %d", status)
	}

	var response sessionListResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode session list: %w", err)
	}

	sessions := make([]domain.MedicationSession, 0, len(response.Sessions))
	for _, doc := range response.Sessions {
		sessions = append(sessions, domain.MedicationSession{
			ID:             doc.ID,
			OwnerID:        domain.OwnerID(doc.OwnerID),
			SubjectID:      domain.SubjectID(doc.SubjectID),
			MedicationName: doc.MedicationName,
			DoseGiven:      doc.DoseGiven,
			DoseUnit:       doc.DoseUnit,
			Completed:      doc.Completed,
			LoggedAt:       parseTime(doc.LoggedAt),
			ScheduleID:     doc.ScheduleID,
			ScheduledTime:  parseTime(doc.ScheduledTime),
		})
	}

	return sessions, nil
}

func (c *Client) CreateMedicationSession(ctx context.Context, session domain.MedicationSession) error {
	path := fmt.Sprintf("/v1/owners/%s/subjects/%s/sessions/medication",
		url.PathEscape(string(session.OwnerID)), url.PathEscape(string(session.SubjectID)))
	return c.post(ctx, path, medicationDocument(session))
}

func (c *Client) CreateFluidSession(ctx context.Context, session domain.FluidSession) error {
	path := fmt.Sprintf("/v1/owners/%s/subjects/%s/sessions/fluid",
		url.PathEscape(string(session.OwnerID)), url.PathEscape(string(session.SubjectID)))
	return c.post(ctx, path, fluidDocument(session))
}

func (c *Client) CreateSessionBatch(ctx context.Context, medications []domain.MedicationSession, fluids []domain.FluidSession) error {
	if len(medications) == 0 && len(fluids) == 0 {
		return nil
	}

	request := batchRequest{}
	owner, subject := "", ""
	for _, session := range medications {
		request.Medications = append(request.Medications, medicationDocument(session))
		owner, subject = string(session.OwnerID), string(session.SubjectID)
	}
	for _, session := range fluids {
		request.Fluids = append(request.Fluids, fluidDocument(session))
		owner, subject = string(session.OwnerID), string(session.SubjectID)
	}

	path := fmt.Sprintf("/v1/owners/%s/subjects/%s/sessions:batch",
		url.PathEscape(owner), url.PathEscape(subject))
	return c.post(ctx, path, request)
}

func (c *Client) fetchSummary(ctx context.Context, path string) (domain.RemoteSummary, bool, error) {
	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.RemoteSummary{}, false, err
	}
	if status == http.StatusNotFound {
		return domain.RemoteSummary{}, false, nil
	}
	if status != http.StatusOK {
		return domain.RemoteSummary{}, false, fmt.Errorf("fetch summary: unexpected status %d", status)
	}

	var doc summaryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.RemoteSummary{}, false, fmt.Errorf("decode summary: %w", err)
	}

	return domain.RemoteSummary{
		Period:                 doc.Period,
		MedicationSessionCount: doc.MedicationSessionCount,
		FluidSessionCount:      doc.FluidSessionCount,
		MedicationNames:        doc.MedicationNames,
		TotalDoseGiven:         doc.TotalDoseGiven,
		TotalFluidVolumeGiven:  doc.TotalFluidVolumeGiven,
		MedicationTimes:        parseTimeMap(doc.MedicationTimes),
		CompletedTimes:         parseTimeMap(doc.CompletedTimes),
	}, true, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("write session: unexpected status %d: %s", status, strings.TrimSpace(string(respBody)))
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		return nil, 0, fmt.Errorf("missing remote base URL")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("create remote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute remote request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read remote response: %w", err)
	}

	return data, resp.StatusCode, nil
}

func medicationDocument(session domain.MedicationSession) sessionDocument {
	return sessionDocument{
		ID:             session.ID,
		OwnerID:        string(session.OwnerID),
		SubjectID:      string(session.SubjectID),
		MedicationName: session.MedicationName,
		DoseGiven:      session.DoseGiven,
		DoseUnit:       session.DoseUnit,
		Completed:      session.Completed,
		LoggedAt:       formatTime(session.LoggedAt),
		ScheduleID:     session.ScheduleID,
		ScheduledTime:  formatTime(session.ScheduledTime),
	}
}

func fluidDocument(session domain.FluidSession) sessionDocument {
	return sessionDocument{
		ID:            session.ID,
		OwnerID:       string(session.OwnerID),
		SubjectID:     string(session.SubjectID),
		VolumeGiven:   session.VolumeGiven,
		Completed:     session.Completed,
		LoggedAt:      formatTime(session.LoggedAt),
		ScheduleID:    session.ScheduleID,
		ScheduledTime: formatTime(session.ScheduledTime),
	}
}

func parseTimeMap(raw map[string][]string) map[string][]time.Time {
	if len(raw) == 0 {
		return nil
	}

	decoded := make(map[string][]time.Time, len(raw))
	for name, list := range raw {
		values := make([]time.Time, 0, len(list))
		for _, value := range list {
			values = append(values, parseTime(value))
		}
		decoded[name] = values
	}
	return decoded
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}

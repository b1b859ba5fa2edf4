package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harentsoaR/medibook-api/internal/models"
)

// Notifier tells a patient about changes to their appointment.
type Notifier interface {
	SendAppointmentSMS(patient *models.User, apt *models.Appointment)
}

// NotificationService sends SMS through the Textbelt API.
type NotificationService struct {
	apiKey string
	url    string
	client *http.Client
	log    logrus.FieldLogger
}

func NewNotificationService(apiKey, url string, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.WithField("component", "notifications"),
	}
}

// SendAppointmentSMS sends in a goroutine so it doesn't block the API response.
func (s *NotificationService) SendAppointmentSMS(patient *models.User, apt *models.Appointment) {
	if patient.Phone == "" {
		s.log.WithField("patient_id", patient.ID.Hex()).Info("SMS not sent: patient has no phone number")
		return
	}
	body := appointmentMessage(apt)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.send(ctx, patient.Phone, body); err != nil {
			s.log.WithError(err).WithField("appointment_id", apt.ID.Hex()).Warn("Failed to send SMS")
			return
		}
		s.log.WithField("appointment_id", apt.ID.Hex()).Info("SMS sent")
	}()
}

func appointmentMessage(apt *models.Appointment) string {
	when := apt.Date + " at " + apt.Time
	switch apt.Status {
	case models.StatusApproved:
		return fmt.Sprintf("Appointment confirmed with %s on %s.", apt.DoctorName, when)
	case models.StatusRejected:
		return fmt.Sprintf("%s could not accept your appointment on %s.", apt.DoctorName, when)
	case models.StatusCancelled:
		return fmt.Sprintf("Your appointment with %s on %s was cancelled.", apt.DoctorName, when)
	case models.StatusCompleted:
		return fmt.Sprintf("Thanks for visiting %s. Open the app to rate your appointment.", apt.DoctorName)
	default:
		return fmt.Sprintf("Appointment requested with %s on %s. You will be notified once it is confirmed.", apt.DoctorName, when)
	}
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *NotificationService) send(ctx context.Context, phone, message string) error {
	postBody, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     s.apiKey,
	})
	if err != nil {
		return fmt.Errorf("encode sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(postBody))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response (status %d): %w", resp.StatusCode, err)
	}
	if !result.Success {
		if result.Error == "" {
			result.Error = resp.Status
		}
		return errors.New("textbelt: " + result.Error)
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/medibook-api/internal/logger"
	"github.com/harentsoaR/medibook-api/internal/models"
)

func TestNotificationService_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	s := NewNotificationService("key-123", srv.URL, logger.Discard())
	require.NoError(t, s.send(context.Background(), "+261340000000", "hello"))
	assert.Equal(t, map[string]string{"phone": "+261340000000", "message": "hello", "key": "key-123"}, got)
}

func TestNotificationService_SendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "Out of quota"}`))
	}))
	defer srv.Close()

	s := NewNotificationService("", srv.URL, logger.Discard())
	err := s.send(context.Background(), "+261340000000", "hello")
	assert.ErrorContains(t, err, "Out of quota")
}

func TestNotificationService_SendBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewNotificationService("", srv.URL, logger.Discard())
	assert.Error(t, s.send(context.Background(), "+261340000000", "hello"))
}

func TestNotificationService_SkipsPatientsWithoutPhone(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewNotificationService("", srv.URL, logger.Discard())
	s.SendAppointmentSMS(&models.User{}, &models.Appointment{})
	assert.False(t, called)
}

func TestAppointmentMessage(t *testing.T) {
	apt := &models.Appointment{DoctorName: "Dr. Rakoto", Date: "Jan 03, 2024", Time: "10:00 AM"}

	apt.Status = models.StatusPending
	assert.Contains(t, appointmentMessage(apt), "requested with Dr. Rakoto on Jan 03, 2024 at 10:00 AM")
	apt.Status = models.StatusApproved
	assert.Contains(t, appointmentMessage(apt), "confirmed")
	apt.Status = models.StatusRejected
	assert.Contains(t, appointmentMessage(apt), "could not accept")
	apt.Status = models.StatusCancelled
	assert.Contains(t, appointmentMessage(apt), "cancelled")
	apt.Status = models.StatusCompleted
	assert.Contains(t, appointmentMessage(apt), "rate")
}

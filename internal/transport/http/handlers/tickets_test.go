package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timesheet/internal/domain/auth"
	"timesheet/internal/platform/db"
)

type ticketView struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Category    string  `json:"category"`
	AssignedTo  *string `json:"assignedTo"`
	Resolution  string  `json:"resolution"`
	Attachments []struct {
		ID string `json:"id"`
	} `json:"attachments"`
}

func (s *testServer) raiseTicket(t *testing.T, role auth.Role) ticketView {
	t.Helper()
	var ticket ticketView
	expect(t, s.do(t, http.MethodPost, "/api/v1/tickets/", role, map[string]any{
		"title": "VPN drops every hour", "description": "Since the client update", "category": "network", "priority": "high",
	}), http.StatusCreated).decode(t, &ticket)
	return ticket
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	ticket := srv.raiseTicket(t, auth.RoleEmployee)
	assert.Equal(t, "open", ticket.Status)
	assert.Equal(t, "network", ticket.Category)
	assert.Equal(t, db.SeedEmployeeID, ticket.UserID)

	// only the submitter and IT support can see it
	expect(t, srv.do(t, http.MethodGet, "/api/v1/tickets/"+ticket.ID, auth.RoleManager, nil), http.StatusForbidden)
	expect(t, srv.do(t, http.MethodGet, "/api/v1/tickets/"+ticket.ID, auth.RoleITAdmin, nil), http.StatusOK)

	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/start", auth.RoleEmployee, nil), http.StatusForbidden)
	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/start", auth.RoleITAdmin, nil), http.StatusOK).decode(t, &ticket)
	assert.Equal(t, "in_progress", ticket.Status)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, db.SeedITAdminID, *ticket.AssignedTo)

	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/resolve", auth.RoleITAdmin, map[string]any{
		"note": "Pinned the previous client version",
	}), http.StatusOK).decode(t, &ticket)
	assert.Equal(t, "resolved", ticket.Status)
	assert.Equal(t, "Pinned the previous client version", ticket.Resolution)

	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/close", auth.RoleManager, nil), http.StatusForbidden)
	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/close", auth.RoleEmployee, nil), http.StatusOK).decode(t, &ticket)
	assert.Equal(t, "closed", ticket.Status)
	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/reopen", auth.RoleEmployee, nil), http.StatusConflict)

	var notes []struct {
		Type string `json:"type"`
	}
	expect(t, srv.do(t, http.MethodGet, "/api/v1/notifications", auth.RoleEmployee, nil), http.StatusOK).decode(t, &notes)
	var types []string
	for _, n := range notes {
		types = append(types, n.Type)
	}
	assert.Contains(t, types, "ticket_submitted")
	assert.Contains(t, types, "ticket_updated")
}

func TestTicketListingIsScoped(t *testing.T) {
	srv := newTestServer(t)
	srv.raiseTicket(t, auth.RoleEmployee)
	srv.raiseTicket(t, auth.RoleManager)

	var list []ticketView
	resp := expect(t, srv.do(t, http.MethodGet, "/api/v1/tickets/?userId="+db.SeedHODID, auth.RoleEmployee, nil), http.StatusOK)
	resp.decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, db.SeedEmployeeID, list[0].UserID)
	assert.Equal(t, "1", resp.header.Get("X-Total-Count"))

	resp = expect(t, srv.do(t, http.MethodGet, "/api/v1/tickets/?status=open&category=network", auth.RoleITAdmin, nil), http.StatusOK)
	assert.Equal(t, "2", resp.header.Get("X-Total-Count"))

	resp = expect(t, srv.do(t, http.MethodGet, "/api/v1/tickets/?status=lost", auth.RoleITAdmin, nil), http.StatusBadRequest)
	assert.Equal(t, []string{"status"}, fieldErrors(t, resp))
}

func TestTicketAssignment(t *testing.T) {
	srv := newTestServer(t)
	ticket := srv.raiseTicket(t, auth.RoleEmployee)

	body := map[string]any{"assigneeId": db.SeedITAdminID}
	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/assign", auth.RoleHR, body), http.StatusForbidden)
	expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/assign", auth.RoleITAdmin, body), http.StatusOK).decode(t, &ticket)
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, db.SeedITAdminID, *ticket.AssignedTo)

	resp := expect(t, srv.do(t, http.MethodPost, "/api/v1/tickets/"+ticket.ID+"/assign", auth.RoleITAdmin, map[string]any{
		"assigneeId": db.SeedHRID,
	}), http.StatusBadRequest)
	assert.Equal(t, []string{"assigneeId"}, fieldErrors(t, resp))
}

func TestTicketSubmitWithUploadKeepsNothingWhenRefused(t *testing.T) {
	srv := newTestServer(t)

	submit := func(fields map[string]string) response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			require.NoError(t, mw.WriteField(k, v))
		}
		part, err := mw.CreateFormFile("documents", "screen.pdf")
		require.NoError(t, err)
		_, err = part.Write(pdfProof)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, srv.url+"/api/v1/tickets/", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return srv.send(t, req, auth.RoleEmployee)
	}

	resp := expect(t, submit(map[string]string{"title": "No description"}), http.StatusBadRequest)
	assert.Equal(t, []string{"description"}, fieldErrors(t, resp))
	stored, err := os.ReadDir(srv.attachmentDir)
	require.NoError(t, err)
	assert.Empty(t, stored)

	var ticket ticketView
	expect(t, submit(map[string]string{"title": "Printer jam", "description": "Tray two", "category": "hardware"}), http.StatusCreated).decode(t, &ticket)
	require.Len(t, ticket.Attachments, 1)
	assert.Equal(t, "medium", ticket.Priority)
}

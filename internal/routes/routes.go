package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/sparkslk/sparks-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)
	r.Get("/api/auth/me", handlers.Me)

	// Forgot-password OTP flow (mobile)
	r.Post("/api/mobile/forgot-password", handlers.ForgotPassword)
	r.Post("/api/mobile/forgot-password/verify", handlers.VerifyForgotPasswordOTP)
	r.Post("/api/mobile/forgot-password/reset", handlers.ResetForgotPassword)

	// Parent routes: task lists and session views
	r.Get("/api/parent/children/{childId}/tasks", handlers.GetChildTasks)
	r.Patch("/api/parent/children/{childId}/tasks/{taskId}/complete", handlers.CompleteTask)
	r.Get("/api/parent/sessions/{id}", handlers.GetParentSession)
	r.Get("/api/parent/sessions/{id}/tasks", handlers.GetSessionTasks)
	r.Patch("/api/parent/sessions/{id}/tasks/{taskId}/complete", handlers.CompleteTask)

	// Therapist routes
	r.Get("/api/therapist/patient-requests", handlers.GetPatientRequests)
	r.Post("/api/therapist/patient-requests", handlers.ActOnPatientRequest)
	r.Get("/api/therapist/sessions", handlers.GetTherapistSessions)
	r.Get("/api/therapist/sessions/{id}", handlers.GetTherapistSession)
	r.Put("/api/therapist/sessions/{id}", handlers.UpdateTherapistSession)

	// Availability slot management
	r.Get("/api/therapist/availability", handlers.GetAvailability)
	r.Post("/api/therapist/availability", handlers.CreateSlot)
	r.Post("/api/therapist/availability/bulk-add", handlers.BulkAddSlots)
	r.Patch("/api/therapist/availability/{id}", handlers.UpdateSlot)
	r.Delete("/api/therapist/availability/{id}", handlers.DeleteSlot)

	// Reports
	r.Get("/api/therapist/reports", handlers.GetReports)
	r.Get("/api/therapist/reports/export", handlers.ExportReportsCSV)

	// Therapist profile
	r.Get("/api/therapist/profile", handlers.GetTherapistProfile)
	r.Post("/api/therapist/profile", handlers.UpsertTherapistProfile)
	r.Post("/api/therapist/profile/image", handlers.UploadProfileImage)
	r.Post("/api/therapist/profile/complete", handlers.CompleteTherapistProfile)

	// Therapist application intake (public) and manager review
	r.Post("/api/therapist/applications", handlers.SubmitApplication)
	r.Get("/api/manager/applications", handlers.GetApplications)
	r.Patch("/api/manager/applications/{id}/review", handlers.ReviewApplication)

	// Manager ops
	r.Put("/api/manager/unblock-ip", handlers.UnblockIP)

	// Contact us routes
	r.Post("/api/contact", handlers.SubmitContact)
	r.Get("/api/manager/contacts", handlers.GetContactMessages)
	r.Delete("/api/manager/contacts/{id}", handlers.DeleteContactMessage)

	// Conversation API (MongoDB history + Redis Pub/Sub)
	r.Get("/api/conversations", handlers.GetConversations)
	r.Post("/api/conversations", handlers.CreateConversation)
	r.Get("/api/conversations/{id}/messages", handlers.GetMessages)
	r.Post("/api/conversations/{id}/messages", handlers.PostMessage)
	r.Post("/api/conversations/{id}/read", handlers.MarkConversationRead)

	// WebSocket endpoint for realtime parent↔therapist messaging
	r.Get("/ws/messages", handlers.MessagesWebSocket)
}

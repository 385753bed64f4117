package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// handleRoot confirms the API is up.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "ASL Recognition API is running"})
}

// handleHealth is the liveness endpoint.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "healthy",
		"model_loaded": s.rec.ModelLoaded(),
	})
}

// handleStatus reports detailed service state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":               "online",
		"version":              s.cfg.Version,
		"model_loaded":         s.rec.ModelLoaded(),
		"current_sentence":     s.rec.Sentence(),
		"prediction_threshold": s.rec.Threshold(),
		"clients":              s.ClientCount(),
		"monitors":             s.MonitorCount(),
	})
}

// handleReset clears the recognizer and tells the observers.
func (s *Server) handleReset(c *fiber.Ctx) error {
	ack := s.rec.Reset()
	s.resets.Add(1)
	s.monitor.BroadcastJSON(ack)
	return c.JSON(ack)
}

// handleUploadVideo saves the uploaded file to a temp path and runs it
// through the recognizer frame by frame.
func (s *Server) handleUploadVideo(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no video file provided",
		})
	}

	// Keep the extension; the video decoder probes by it.
	temp, err := os.CreateTemp("", "upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	temp.Close()
	defer os.Remove(temp.Name())

	if err := c.SaveFile(file, temp.Name()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	results, err := s.rec.ProcessVideo(c.UserContext(), temp.Name())
	if err != nil {
		s.logger.Error("video processing failed", "file", file.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Error processing video: %v", err),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Video processed successfully",
		"results": results,
	})
}

// handleMetrics exposes service counters in Prometheus text format.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	stats := s.GetStats()
	return c.SendString(fmt.Sprintf(`# HELP asl_service_clients Connected recognition clients
# TYPE asl_service_clients gauge
asl_service_clients %d

# HELP asl_service_monitors Connected monitor observers
# TYPE asl_service_monitors gauge
asl_service_monitors %d

# HELP asl_service_frames_processed Total frames processed
# TYPE asl_service_frames_processed counter
asl_service_frames_processed %d

# HELP asl_service_events_sent Total replies sent to recognition clients
# TYPE asl_service_events_sent counter
asl_service_events_sent %d

# HELP asl_service_resets Total recognizer resets
# TYPE asl_service_resets counter
asl_service_resets %d
`, stats.Clients, stats.Monitors, stats.FramesProcessed, stats.EventsSent, stats.Resets))
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"stayCleanAPI/services"
)

type VideoHandler struct {
	videoService *services.VideoService
}

func NewVideoHandler(videoService *services.VideoService) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
	}
}

// GetPlaylist serves the motivational playlist. Public: the videos are the
// same for everyone and carry no user state.
func (h *VideoHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if h.videoService == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Video playlist is not configured")
		return
	}

	videos, err := h.videoService.GetPlaylist(ctx)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to fetch playlist videos")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(videos),
		"videos": videos,
	})
}

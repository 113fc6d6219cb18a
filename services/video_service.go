package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const playlistCacheTTL = 10 * time.Minute

type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
}

// VideoService proxies a curated motivational playlist through the YouTube
// Data API. Read-only; responses are cached in-process to stay inside the
// API quota.
type VideoService struct {
	yt         *youtube.Service
	playlistID string

	mu        sync.Mutex
	cached    []Video
	fetchedAt time.Time
}

func NewVideoService(ctx context.Context, apiKey, playlistID string) (*VideoService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YOUTUBE_API_KEY is not set")
	}
	if playlistID == "" {
		return nil, fmt.Errorf("YOUTUBE_PLAYLIST_ID is not set")
	}

	yt, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	return &VideoService{yt: yt, playlistID: playlistID}, nil
}

func (s *VideoService) GetPlaylist(ctx context.Context) ([]Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.fetchedAt) < playlistCacheTTL {
		return s.cached, nil
	}

	resp, err := s.yt.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(s.playlistID).
		MaxResults(50).
		Context(ctx).
		Do()
	if err != nil {
		// Serve stale data over an error if we have any.
		if s.cached != nil {
			log.Printf("VideoService: playlist fetch failed, serving cached copy: %v", err)
			return s.cached, nil
		}
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil || item.Snippet.ResourceId.Kind != "youtube#video" {
			continue
		}

		thumbnail := ""
		if item.Snippet.Thumbnails != nil {
			if item.Snippet.Thumbnails.Medium != nil {
				thumbnail = item.Snippet.Thumbnails.Medium.Url
			} else if item.Snippet.Thumbnails.Default != nil {
				thumbnail = item.Snippet.Thumbnails.Default.Url
			}
		}

		videos = append(videos, Video{
			ID:           item.Snippet.ResourceId.VideoId,
			Title:        item.Snippet.Title,
			Thumbnail:    thumbnail,
			ChannelTitle: item.Snippet.VideoOwnerChannelTitle,
		})
	}

	s.cached = videos
	s.fetchedAt = time.Now()

	return videos, nil
}

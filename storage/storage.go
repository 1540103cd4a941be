package storage

import (
	"sync"

	"github.com/srgchrksv/blogpodcaster/models"
)

// Storage keeps podcast sessions in memory. Each session holds at most its
// latest episode.
type Storage struct {
	mu       sync.Mutex
	sessions map[string]*models.PodcastSession
}

func NewStorage() *Storage {
	return &Storage{
		sessions: make(map[string]*models.PodcastSession),
	}
}

// Begin marks a run as started for the session. It fails with models.ErrBusy
// when the session already has a run in progress.
func (s *Storage) Begin(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.sessionLocked(sessionID)
	if session.Busy {
		return models.ErrBusy
	}
	session.Busy = true

	return nil
}

// Finish ends the session's run and, when episode is not nil, makes it the
// session's latest episode.
func (s *Storage) Finish(sessionID string, episode *models.Episode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.sessionLocked(sessionID)
	session.Busy = false
	if episode != nil {
		session.Episode = episode
	}
}

// Latest returns the session's latest episode.
func (s *Storage) Latest(sessionID string) (*models.Episode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.Episode == nil {
		return nil, false
	}

	return session.Episode, true
}

// Episode returns the session's episode with the given ID.
func (s *Storage) Episode(sessionID, episodeID string) (*models.Episode, bool) {
	episode, ok := s.Latest(sessionID)
	if !ok || episode.ID != episodeID {
		return nil, false
	}

	return episode, true
}

func (s *Storage) sessionLocked(sessionID string) *models.PodcastSession {
	session, ok := s.sessions[sessionID]
	if !ok {
		session = &models.PodcastSession{}
		s.sessions[sessionID] = session
	}

	return session
}

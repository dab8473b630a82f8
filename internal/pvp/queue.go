package pvp

import (
	"errors"
	"strings"
	"sync"
)

var ErrInvalidArgs = errors.New("invalid arguments")

// Queue is the in-process FIFO of users waiting for an opponent.
type Queue struct {
	mu      sync.Mutex
	waiting []string
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue pairs user with the longest-waiting user, or parks user when nobody waits.
// A user found at the head again is put back at the head instead of being paired with
// itself, and is not added twice.
func (q *Queue) Enqueue(user string) (opponent string, paired bool, err error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", false, ErrInvalidArgs
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.waiting) == 0 {
		q.waiting = append(q.waiting, user)
		return "", false, nil
	}
	head := q.waiting[0]
	q.waiting = q.waiting[1:]
	if head == user {
		q.waiting = append([]string{head}, q.waiting...)
		return "", false, nil
	}
	q.removeLocked(user)
	return head, true, nil
}

// Remove drops user's entry; it reports whether one existed.
func (q *Queue) Remove(user string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(strings.TrimSpace(user))
}

func (q *Queue) removeLocked(user string) bool {
	for i, u := range q.waiting {
		if u == user {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether user is waiting.
func (q *Queue) Contains(user string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, u := range q.waiting {
		if u == user {
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

package domain

// Queue is a FIFO of tracks waiting to be played.
type Queue struct {
	tracks []*Track
}

// NewQueue creates a new empty Queue.
func NewQueue() Queue {
	return Queue{tracks: make([]*Track, 0)}
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of waiting tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Append adds a track to the tail.
func (q *Queue) Append(track *Track) {
	q.tracks = append(q.tracks, track)
}

// Pop removes and returns the head, or nil if the queue is empty.
func (q *Queue) Pop() *Track {
	if q.IsEmpty() {
		return nil
	}
	head := q.tracks[0]
	q.tracks[0] = nil
	q.tracks = q.tracks[1:]
	return head
}

// List returns copies of the waiting tracks in play order.
func (q *Queue) List() []Track {
	result := make([]Track, len(q.tracks))
	for i, t := range q.tracks {
		result[i] = *t
	}
	return result
}

// Clear drops all waiting tracks.
func (q *Queue) Clear() {
	q.tracks = make([]*Track, 0)
}

package apiclient

import "admin-console/internal/models"

// Save is either a Create or an Update of a record, decided by the caller.
type Save[T any] struct {
	id     models.ID
	update bool
	Body   T
}

func Create[T any](body T) Save[T] {
	return Save[T]{Body: body}
}

func Update[T any](id models.ID, body T) Save[T] {
	return Save[T]{id: id, update: true, Body: body}
}

func (s Save[T]) IsUpdate() bool { return s.update }

func (s Save[T]) ID() models.ID { return s.id }

// WithBody returns the same operation carrying body.
func (s Save[T]) WithBody(body T) Save[T] {
	s.Body = body
	return s
}

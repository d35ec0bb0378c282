package cli

import "fmt"

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

type permissionError struct {
	actorID string
	action  string
	id      string
}

func (e permissionError) Error() string {
	if e.id == "" {
		return fmt.Sprintf("permission denied: actor %s cannot %s reusable blocks", e.actorID, e.action)
	}
	return fmt.Sprintf("permission denied: actor %s cannot %s reusable block %s", e.actorID, e.action, e.id)
}

func errPermission(actorID, action, id string) error {
	return permissionError{actorID: actorID, action: action, id: id}
}

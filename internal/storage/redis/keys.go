package redis

import (
	"fmt"

	"github.com/mcoot/teamdraw/internal/model"
)

// Key prefix for all team draw data
const keyPrefix = "teamdraw"

// accountKey returns the Redis key for an Account
func accountKey(id model.UserID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> account id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// eventKey returns the Redis key for an Event
func eventKey(id model.EventID) string {
	return fmt.Sprintf("%s:event:%s", keyPrefix, id)
}

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// signupKey returns the Redis key for a Signup
func signupKey(id model.SignupID) string {
	return fmt.Sprintf("%s:signup:%s", keyPrefix, id)
}

// eventSignupsIndexKey returns the Redis key for the ZSET of an event's signups, scored by creation time
func eventSignupsIndexKey(eventID model.EventID) string {
	return fmt.Sprintf("%s:idx:signups_for_event:%s", keyPrefix, eventID)
}

// assignmentKey returns the Redis key for a signup's active Assignment
func assignmentKey(eventID model.EventID, signupID model.SignupID) string {
	return fmt.Sprintf("%s:assignment:%s:%s", keyPrefix, eventID, signupID)
}

// eventAssignmentsIndexKey returns the Redis key for the SET of assigned signups for an event
func eventAssignmentsIndexKey(eventID model.EventID) string {
	return fmt.Sprintf("%s:idx:assignments_for_event:%s", keyPrefix, eventID)
}

// auditKey returns the Redis key for an event's audit LIST
func auditKey(eventID model.EventID) string {
	return fmt.Sprintf("%s:audit:%s", keyPrefix, eventID)
}

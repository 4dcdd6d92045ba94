package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// StagedArtifactKey returns the cache key holding the staged (uploaded but
// not yet submitted) recording ref for a participant.
func (r *CacheKeyStruct) StagedArtifactKey(participantID string) string {
	return fmt.Sprintf("participant:%s:staged_artifact", participantID)
}

// ResetLockKey returns the lock key serializing resets of one participant.
func (r *CacheKeyStruct) ResetLockKey(participantID string) string {
	return fmt.Sprintf("participant:%s:reset_lock", participantID)
}

// StudentEventChannel returns the Pub/Sub channel carrying one student's own
// attempt events.
func (r *CacheKeyStruct) StudentEventChannel(studentID int) string {
	return fmt.Sprintf("student:%d:events", studentID)
}

// ExamMonitorChannel returns the Pub/Sub channel supervisors watch for
// participant changes in one exam.
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()

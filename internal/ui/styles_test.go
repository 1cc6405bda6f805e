package ui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kkkkikiki/quizgift/internal/migration"
)

func TestRenderStep(t *testing.T) {
	line := RenderStep(migration.StepResult{
		Kind:    migration.KindRename,
		Target:  "wp_quiz_users",
		Status:  migration.StatusDone,
		Message: "renamed to wp_qcm_quiz_users",
	})
	assert.Contains(t, line, IconPass)
	assert.Contains(t, line, "wp_quiz_users")
	assert.Contains(t, line, "renamed to wp_qcm_quiz_users")

	failed := RenderStep(migration.StepResult{
		Kind:    migration.KindAddIndex,
		Target:  "idx",
		Status:  migration.StatusFailed,
		Message: "boom",
		Err:     errors.New("boom"),
	})
	assert.Contains(t, failed, IconFail)
}

func TestRenderCheck(t *testing.T) {
	assert.Contains(t, RenderCheck("runtime", ""), IconPass)
	assert.Contains(t, RenderCheck("drivers", "missing oracle"), "missing oracle")
	assert.Contains(t, RenderCheck("drivers", "missing oracle"), IconFail)
}

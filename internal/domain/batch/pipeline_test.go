package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePipeline() Pipeline {
	return Pipeline{
		Name: "sid-to-sf2",
		Settings: Settings{
			StopOnError:       true,
			AccuracyThreshold: 90,
		},
		Steps: []StepDefinition{
			{ID: "convert", Enabled: true, Required: true, Command: []string{"sid2sf2", "{input}"}},
			{ID: "info", Enabled: true, Report: true, Command: []string{"sf2info", "{input}"}},
			{ID: "render", Enabled: false, Command: []string{"render", "{input}"}},
		},
	}
}

func TestPipelineValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, samplePipeline().Validate())

	noName := samplePipeline()
	noName.Name = ""
	require.True(t, IsConfigurationError(noName.Validate()))

	dup := samplePipeline()
	dup.Steps[1].ID = "convert"
	err := dup.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate step identifier")

	badID := samplePipeline()
	badID.Steps[0].ID = "Convert Step"
	require.Error(t, badID.Validate())

	noCommand := samplePipeline()
	noCommand.Steps[0].Command = nil
	require.Error(t, noCommand.Validate())

	allDisabled := samplePipeline()
	for i := range allDisabled.Steps {
		allDisabled.Steps[i].Enabled = false
	}
	require.Error(t, allDisabled.Validate())
}

func TestPipelineSnapshotUsesEnabledSteps(t *testing.T) {
	t.Parallel()

	settings := samplePipeline().Snapshot(nil)
	require.Equal(t, []string{"convert", "info"}, settings.StepIDs())
	require.True(t, settings.Steps[0].Required)
	require.True(t, settings.Steps[1].Report)
	require.True(t, settings.StopOnError)
	require.Equal(t, DefaultRunTimeout, settings.RunTimeout)
}

func TestPipelineSnapshotWithExplicitSelection(t *testing.T) {
	t.Parallel()

	settings := samplePipeline().Snapshot([]string{"render", "ghost"})
	require.Equal(t, []string{"render", "ghost"}, settings.StepIDs())
}

package refresh

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sajjad-MoBe/usbrefresh/panel/src/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) error {
	ret := m.Called(name, args)
	return ret.Error(0)
}

// expectSteps registers every default step, failing those named in failures
func (m *mockExecutor) expectSteps(failures map[string]error) {
	for _, step := range DefaultSteps() {
		m.On("Run", step.Command, step.Args).Return(failures[step.Name]).Maybe()
	}
}

// invoked returns the command lines that were run, in call order
func (m *mockExecutor) invoked() []string {
	var lines []string
	for _, call := range m.Calls {
		name := call.Arguments.String(0)
		args := call.Arguments.Get(1).([]string)
		lines = append(lines, fmt.Sprintf("%s %v", name, args))
	}
	return lines
}

type fakeRecorder struct {
	steps []string
	runs  []bool
}

func (r *fakeRecorder) ObserveStep(step string, policy Policy, duration time.Duration, err error) {
	r.steps = append(r.steps, fmt.Sprintf("%s/%s/%t", step, policy, err != nil))
}

func (r *fakeRecorder) ObserveRun(ok bool) {
	r.runs = append(r.runs, ok)
}

func setupSequencer(t *testing.T, failures map[string]error) (*Sequencer, *mockExecutor, *fakeRecorder, *bytes.Buffer) {
	t.Helper()
	exec := new(mockExecutor)
	exec.expectSteps(failures)
	recorder := &fakeRecorder{}
	var logs bytes.Buffer
	logger := shared.NewLoggerTo(&logs, shared.DEBUG)
	return NewSequencer(exec, DefaultSteps(), logger, recorder), exec, recorder, &logs
}

func stepLine(step Step) string {
	return fmt.Sprintf("%s %v", step.Command, step.Args)
}

func TestRunAllStepsSucceed(t *testing.T) {
	seq, exec, recorder, _ := setupSequencer(t, nil)

	result := seq.Run(context.Background())

	assert.True(t, result.OK())
	assert.Equal(t, SuccessMessage, result.Message())
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Steps, 5)
	for _, sr := range result.Steps {
		assert.False(t, sr.Failed(), sr.Step.Name)
	}

	var expected []string
	for _, step := range DefaultSteps() {
		expected = append(expected, stepLine(step))
	}
	assert.Equal(t, expected, exec.invoked())
	assert.Equal(t, []bool{true}, recorder.runs)
}

func TestRunInvokesFixedOrder(t *testing.T) {
	seq, exec, _, _ := setupSequencer(t, nil)
	seq.Run(context.Background())

	assert.Equal(t, []string{
		"sudo [umount /mnt/usb_drive]",
		"sudo [mount -o loop,umask=000,fmask=111,dmask=000 /home/bob/usb_drive.img /mnt/usb_drive]",
		"sudo [modprobe -r g_mass_storage]",
		"sleep [1]",
		"sudo [modprobe g_mass_storage file=/home/bob/usb_drive.img removable=1 ro=0 stall=0]",
	}, exec.invoked())
}

func TestRunTolerantFailuresContinue(t *testing.T) {
	seq, exec, recorder, logs := setupSequencer(t, map[string]error{
		StepUnmount:      fmt.Errorf("umount: /mnt/usb_drive: not mounted"),
		StepGadgetUnload: fmt.Errorf("modprobe: FATAL: Module g_mass_storage is not in use"),
	})

	result := seq.Run(context.Background())

	assert.True(t, result.OK())
	assert.Equal(t, SuccessMessage, result.Message())
	assert.Len(t, exec.invoked(), 5)
	assert.True(t, result.Steps[0].Failed())
	assert.True(t, result.Steps[2].Failed())
	assert.Contains(t, logs.String(), "[WARN] Ignoring unmount failure")
	assert.Contains(t, recorder.steps, "unmount/tolerant/true")
	assert.Equal(t, []bool{true}, recorder.runs)
}

func TestRunMountFailureStops(t *testing.T) {
	seq, exec, recorder, _ := setupSequencer(t, map[string]error{
		StepMount: fmt.Errorf("command 'sudo mount' returned non-zero exit status 32"),
	})

	result := seq.Run(context.Background())

	assert.False(t, result.OK())
	assert.Equal(t, "Error: command 'sudo mount' returned non-zero exit status 32", result.Message())
	require.Len(t, result.Steps, 2)
	assert.Equal(t, StepMount, result.Steps[1].Step.Name)

	invoked := exec.invoked()
	assert.Len(t, invoked, 2)
	load := DefaultSteps()[4]
	exec.AssertNotCalled(t, "Run", load.Command, load.Args)
	assert.Equal(t, []bool{false}, recorder.runs)
}

func TestRunPauseFailureIsStrict(t *testing.T) {
	seq, exec, _, _ := setupSequencer(t, map[string]error{
		StepPause: fmt.Errorf("sleep: interrupted"),
	})

	result := seq.Run(context.Background())

	assert.False(t, result.OK())
	assert.Equal(t, "Error: sleep: interrupted", result.Message())
	assert.Len(t, exec.invoked(), 4)
}

func TestRunGadgetLoadFailureReported(t *testing.T) {
	seq, exec, _, _ := setupSequencer(t, map[string]error{
		StepGadgetLoad: fmt.Errorf("modprobe: ERROR: could not insert 'g_mass_storage'"),
	})

	result := seq.Run(context.Background())

	assert.False(t, result.OK())
	assert.Equal(t, "Error: modprobe: ERROR: could not insert 'g_mass_storage'", result.Message())
	assert.Len(t, exec.invoked(), 5)
}

func TestStepsReturnsCopy(t *testing.T) {
	seq, _, _, _ := setupSequencer(t, nil)
	steps := seq.Steps()
	steps[0].Name = "changed"
	assert.Equal(t, StepUnmount, seq.Steps()[0].Name)
}

func TestDefaultStepPolicies(t *testing.T) {
	policies := make(map[string]Policy)
	for _, step := range DefaultSteps() {
		policies[step.Name] = step.Policy
	}
	assert.Equal(t, map[string]Policy{
		StepUnmount:      Tolerant,
		StepMount:        Strict,
		StepGadgetUnload: Tolerant,
		StepPause:        Strict,
		StepGadgetLoad:   Strict,
	}, policies)
}

func TestPrograms(t *testing.T) {
	assert.Equal(t, []string{"sudo", "sleep"}, Programs(DefaultSteps()))
}

func TestNilRecorder(t *testing.T) {
	exec := new(mockExecutor)
	exec.expectSteps(nil)
	seq := NewSequencer(exec, DefaultSteps(), nil, nil)
	assert.True(t, seq.Run(context.Background()).OK())
}

type ctxRecordingExecutor struct {
	ctxErrs []error
}

func (e *ctxRecordingExecutor) Run(ctx context.Context, name string, args ...string) error {
	e.ctxErrs = append(e.ctxErrs, ctx.Err())
	return nil
}

func TestRunIgnoresCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &ctxRecordingExecutor{}
	seq := NewSequencer(exec, DefaultSteps(), nil, nil)

	result := seq.Run(ctx)

	assert.True(t, result.OK())
	require.Len(t, exec.ctxErrs, 5)
	for _, err := range exec.ctxErrs {
		assert.NoError(t, err)
	}
}

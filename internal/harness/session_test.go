package harness_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cironolaenvision/test-html/internal/harness"
	"github.com/cironolaenvision/test-html/internal/harness/mocks"
)

func sessionScripts() []harness.SupportingScript {
	return []harness.SupportingScript{
		harness.NewSupportingScript("function fetchData() {}\n", "dashboard_javascript.js", "dashboard_javascript"),
		harness.NewSupportingScript("var Chart = {};\n", "chart.js", "chart_library"),
	}
}

func newTester(opts harness.Options, factory *mocks.MockDriverFactory) *harness.Tester {
	return harness.NewTester(opts, sessionScripts(), factory, nil)
}

func TestTest_CleanSnippetRunsFullBudget(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	factory.Add(driver)

	budget := 200 * time.Millisecond
	tester := newTester(harness.Options{MaxWaitTime: budget}, factory)

	start := time.Now()
	result, err := tester.Test(context.Background(), "<p>fine</p>")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	// Success is only declared after the whole wait budget has elapsed.
	assert.GreaterOrEqual(t, elapsed, budget)
	assert.True(t, driver.WasClosed())
}

func TestTestWithWait_OverridesConfiguredBudget(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	factory.Add(driver)

	tester := newTester(harness.Options{MaxWaitTime: 10 * time.Second}, factory)

	override := 200 * time.Millisecond
	start := time.Now()
	result, err := tester.TestWithWait(context.Background(), "<p>fine</p>", override)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, result.Success)
	// The per-call budget governs the polling window, not the
	// configured one.
	assert.GreaterOrEqual(t, elapsed, override)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestTestWithWait_ZeroFallsBackToConfiguredBudget(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	factory.Add(driver)

	budget := 150 * time.Millisecond
	tester := newTester(harness.Options{MaxWaitTime: budget}, factory)

	start := time.Now()
	result, err := tester.TestWithWait(context.Background(), "<p>fine</p>", 0)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.GreaterOrEqual(t, elapsed, budget)
}

func TestTest_ErroringSnippetShortCircuits(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	driver.SevereOnNavigate = "387:17 Uncaught SyntaxError: Unexpected token ')'"
	factory.Add(driver)

	budget := 10 * time.Second
	tester := newTester(harness.Options{MaxWaitTime: budget}, factory)

	start := time.Now()
	result, err := tester.Test(context.Background(), "<script>if (true {</script>")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "line: 387 to 388 column: 17")
	assert.NotContains(t, result.Errors[0], "snippet_id")
	// First error stops polling well before the budget.
	assert.Less(t, elapsed, budget/2)
	assert.True(t, driver.WasClosed())
}

func TestTest_NonErrorLevelsAreIgnored(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	driver.QueueLogs(
		harness.ConsoleLogEntry{Level: harness.LevelInfo, Message: "loaded"},
		harness.ConsoleLogEntry{Level: harness.LevelWarning, Message: "deprecated api"},
	)
	factory.Add(driver)

	tester := newTester(harness.Options{MaxWaitTime: 100 * time.Millisecond}, factory)

	result, err := tester.Test(context.Background(), "<p>noisy</p>")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
}

func TestTest_LoadTimeoutIsFatal(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	driver.StickyReadyState = "loading"
	factory.Add(driver)

	tester := newTester(harness.Options{
		MaxWaitTime: 100 * time.Millisecond,
		LoadTimeout: 150 * time.Millisecond,
	}, factory)

	result, err := tester.Test(context.Background(), "<p>slow</p>")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, harness.ErrLoadTimeout)
	// The browser is released even on the failure path.
	assert.True(t, driver.WasClosed())
}

func TestTest_DriverAcquisitionFailurePropagates(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	factory.Err = errors.New("chrome failed to start")

	tester := newTester(harness.Options{}, factory)

	result, err := tester.Test(context.Background(), "<p>x</p>")
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "chrome failed to start")
}

func TestTest_NavigationIsServedByInterceptor(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	driver.InterceptOnNavigate = true
	factory.Add(driver)

	tester := newTester(harness.Options{MaxWaitTime: 100 * time.Millisecond}, factory)

	snippet := "<canvas id=\"chart\"></canvas>"
	result, err := tester.Test(context.Background(), snippet)
	require.NoError(t, err)
	assert.True(t, result.Success)

	urls := driver.NavigatedURLs()
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "snippet_id=")

	responses := driver.InterceptedResponses()
	require.Len(t, responses, 1)
	assert.Contains(t, string(responses[0].Body), snippet)
	assert.Equal(t, "text/html", responses[0].Headers["Content-Type"])
}

func TestTest_SequentialSessionsGetFreshDrivers(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	tester := newTester(harness.Options{MaxWaitTime: 40 * time.Millisecond}, factory)

	_, err := tester.Test(context.Background(), "<p>one</p>")
	require.NoError(t, err)
	_, err = tester.Test(context.Background(), "<p>two</p>")
	require.NoError(t, err)

	created := factory.Created()
	require.Len(t, created, 2)
	for _, d := range created {
		assert.True(t, d.WasClosed())
	}

	// Each session navigated to its own freshly minted snippet id.
	first := created[0].NavigatedURLs()[0]
	second := created[1].NavigatedURLs()[0]
	assert.NotEqual(t, first, second)
	assert.True(t, strings.Contains(first, "snippet_id="))
}

func TestTest_ContextCancellationStopsPolling(t *testing.T) {
	factory := mocks.NewMockDriverFactory()
	driver := mocks.NewMockDriver()
	factory.Add(driver)

	tester := newTester(harness.Options{MaxWaitTime: 10 * time.Second}, factory)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := tester.Test(ctx, "<p>x</p>")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, driver.WasClosed())
}

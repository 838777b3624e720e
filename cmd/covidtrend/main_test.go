package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lineList = `SNo,ObservationDate,Province/State,Country/Region,Last Update,Confirmed,Deaths,Recovered
1,02/26/2020,,Brazil,2020-02-26T23:53:02,100,1,0
2,02/26/2020,,Italy,2020-02-26T23:43:03,453,12,3
3,02/27/2020,,Brazil,2020-02-27T23:53:02,150,2,0
4,02/28/2020,,Brazil,2020-02-28T23:53:02,225,4,0
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeOn(t, lineList, args...)
}

func executeOn(t *testing.T, csv string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "covid_19_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--data", path, "--log-level", "error"))

	err := root.Execute()
	return stdout.String(), err
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "covidtrend dev")
}

func TestGrowthCmd(t *testing.T) {
	out, err := execute(t, "growth", "--region", "Brazil")
	require.NoError(t, err)

	assert.Contains(t, out, "Average growth rate: 50.00%")
	assert.Contains(t, out, "2020-02-27")
	assert.Contains(t, out, "2020-02-28")
	assert.Contains(t, out, "50.00%")
}

func TestGrowthCmdWindow(t *testing.T) {
	out, err := execute(t, "growth", "--start", "2020-02-27", "--end", "2020-02-28")
	require.NoError(t, err)
	assert.Contains(t, out, "Average growth rate: 50.00%")
}

func TestGrowthCmdUnknownRegion(t *testing.T) {
	_, err := execute(t, "growth", "--region", "Atlantis")
	assert.Error(t, err)
}

func TestGrowthCmdSameDayWindow(t *testing.T) {
	_, err := execute(t, "growth", "--start", "2020-02-27", "--end", "2020-02-27")
	assert.Error(t, err)
}

func TestAnalyzeCmdKeepGoing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")

	// three observations are too few to decompose or forecast
	_, err := execute(t, "analyze", "--out", out)
	assert.Error(t, err)

	stdout, err := execute(t, "analyze", "--out", out, "--keep-going")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Brazil")
	assert.FileExists(t, filepath.Join(out, "summary.json"))
}

func TestInvalidFlagOverride(t *testing.T) {
	_, err := execute(t, "forecast", "--horizon", "0")
	assert.Error(t, err)
}

func TestRegionsCmd(t *testing.T) {
	out, err := execute(t, "regions")
	require.NoError(t, err)
	assert.Equal(t, "Brazil\nItaly\n", out)
}

func TestGrowthCmdIgnoresOtherStages(t *testing.T) {
	noDeaths := `SNo,ObservationDate,Province/State,Country/Region,Last Update,Confirmed,Deaths,Recovered
1,02/26/2020,,Brazil,2020-02-26T23:53:02,100,0,0
2,02/27/2020,,Brazil,2020-02-27T23:53:02,150,0,0
3,02/28/2020,,Brazil,2020-02-28T23:53:02,225,0,0
`
	out, err := executeOn(t, noDeaths, "growth", "--region", "Brazil")
	require.NoError(t, err)
	assert.Contains(t, out, "Average growth rate: 50.00%")
}

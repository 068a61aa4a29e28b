package benchmarks

import (
	"bytes"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/zeu5/dist-qlearning/scheduler"
	"github.com/zeu5/dist-qlearning/types"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	config = scheduler.DefaultConfig()
	cmd := GetRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	return cmd.Execute()
}

func TestRunCommandSavesResult(t *testing.T) {
	dir := t.TempDir()
	jsonl := path.Join(dir, "transitions.jsonl")
	err := execute(t, "run", "--agents", "3", "--episodes", "40", "--states", "10", "--save", dir, "--jsonl", jsonl)
	if err != nil {
		t.Fatal(err)
	}
	res, err := loadResult(path.Join(dir, "result.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Agents) != 3 || res.Completed() != 3 || res.Config.Episodes != 40 {
		t.Errorf("result = %+v", res)
	}
	bs, err := os.ReadFile(jsonl)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(bs), "\n"); lines != 120 {
		t.Errorf("jsonl has %d lines, want 120", lines)
	}
}

func TestRunCommandGrid(t *testing.T) {
	dir := t.TempDir()
	err := execute(t, "run", "--env", "grid", "--height", "4", "--width", "5", "--agents", "2", "--episodes", "30", "--save", dir)
	if err != nil {
		t.Fatal(err)
	}
	res, err := loadResult(path.Join(dir, "result.json"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Config.States != 20 || res.Config.Actions != 5 {
		t.Errorf("grid config = %+v", res.Config)
	}
	if _, err := os.Stat(path.Join(dir, "visits.png")); err != nil {
		t.Error(err)
	}
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, "run.yaml")
	os.WriteFile(file, []byte("agents: 4\nepisodes: 25\nstates: 6\npolicy: random\n"), 0644)

	if err := execute(t, "run", "--config", file, "--agents", "2", "--save", dir); err != nil {
		t.Fatal(err)
	}
	res, err := loadResult(path.Join(dir, "result.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Agents) != 2 || res.Config.Episodes != 25 || res.Config.States != 6 || res.Config.Policy != "random" {
		t.Errorf("config = %+v", res.Config)
	}
	for _, a := range res.Agents {
		if a.Status != types.StatusCompleted || a.Values != nil {
			t.Errorf("agent %d = %+v", a.ID, a)
		}
	}
}

func TestRunCommandRejectsBadConfig(t *testing.T) {
	if err := execute(t, "run", "--alpha", "0"); err == nil {
		t.Error("alpha 0 accepted")
	}
	if err := execute(t, "run", "--env", "maze"); err == nil {
		t.Error("unknown environment accepted")
	}
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	err := execute(t, "compare", "--agents", "2", "--episodes", "50", "--states", "8", "--epsilons", "0.1", "--save", dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, file := range []string{"comparison_config.json", "results/egreedy-0.1_0.json", "results/random_0.json", "plots/0_reward.png"} {
		if _, err := os.Stat(path.Join(dir, file)); err != nil {
			t.Errorf("missing %s", file)
		}
	}
}

func TestCompareWithConfigFileKeepsEpsilons(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, "run.yaml")
	os.WriteFile(file, []byte("agents: 3\nepisodes: 20\nstates: 6\n"), 0644)

	err := execute(t, "compare", "--config", file, "--agents", "2", "--epsilons", "0.1,0.3", "--save", dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"egreedy-0.1_0.json", "egreedy-0.3_0.json"} {
		res, err := loadResult(path.Join(dir, "results", name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(res.Agents) != 2 || res.Config.Episodes != 20 || res.Config.States != 6 {
			t.Errorf("%s: config = %+v", name, res.Config)
		}
	}
	if _, err := os.Stat(path.Join(dir, "results", "egreedy-0.05_0.json")); err == nil {
		t.Error("default epsilons were not replaced")
	}
}

func TestLoadConfigFileRestoresSliceFlags(t *testing.T) {
	dir := t.TempDir()
	file := path.Join(dir, "run.toml")
	os.WriteFile(file, []byte("agents = 5\nalpha = 0.5\n"), 0644)

	config = scheduler.DefaultConfig()
	var weights []float64
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringVar(&configFile, "config", "", "")
	flags.IntVar(&config.Agents, "agents", config.Agents, "")
	flags.Float64SliceVar(&weights, "weights", []float64{1}, "")
	if err := flags.Parse([]string{"--config", file, "--agents", "7", "--weights", "0.25,0.75"}); err != nil {
		t.Fatal(err)
	}

	if err := loadConfigFile(flags); err != nil {
		t.Fatal(err)
	}
	if config.Agents != 7 || config.Alpha != 0.5 {
		t.Errorf("config = %+v", config)
	}
	if len(weights) != 2 || weights[0] != 0.25 || weights[1] != 0.75 {
		t.Errorf("weights = %v", weights)
	}
	configFile = ""
}

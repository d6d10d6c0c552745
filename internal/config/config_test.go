package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/nifbatch/internal/device"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Input = "/models"
	cfg.Driver = "/tools/driver.py"
	return cfg
}

func TestNormalizeDirArg(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing slash", "/models/out", "/models/out"},
		{"single trailing slash", "/models/out/", "/models/out"},
		{"multiple trailing slashes", "/models/out///", "/models/out"},
		{"root path", "/", "/"},
		{"relative with slash", "out/", "out"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeDirArg(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeDirArg(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig_SaneDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Device != device.Auto {
		t.Errorf("default Device = %q, want %q", cfg.Device, device.Auto)
	}
	if cfg.Jobs != 1 {
		t.Errorf("default Jobs = %d, want 1", cfg.Jobs)
	}
	if cfg.SkipExisting {
		t.Error("default SkipExisting should be false (re-runs overwrite)")
	}
	if cfg.SkipTolerance != -1 {
		t.Errorf("default SkipTolerance = %d, want -1", cfg.SkipTolerance)
	}
	if cfg.Timeout != 0 || cfg.KillGrace != 0 {
		t.Error("default Timeout and KillGrace should be unbounded (0)")
	}
	if len(cfg.StrayNames) != 1 || cfg.StrayNames[0] != "NIF" {
		t.Errorf("default StrayNames = %v, want [NIF]", cfg.StrayNames)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad device", func(c *Config) { c.Device = "metal" }, true},
		{"zero jobs", func(c *Config) { c.Jobs = 0 }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
		{"tolerance below -1", func(c *Config) { c.SkipTolerance = -2 }, true},
		{"missing input", func(c *Config) { c.Input = "" }, true},
		{"missing driver", func(c *Config) { c.Driver = "" }, true},
		{"render needs render driver", func(c *Config) { c.Render = true }, true},
		{"render with driver", func(c *Config) { c.Render = true; c.RenderDriver = "r.py" }, false},
		{"bad render type", func(c *Config) { c.RenderType = "boat" }, true},
		{"empty host", func(c *Config) { c.Host = " " }, true},
		{"check only skips paths", func(c *Config) { c.CheckOnly = true; c.Input = ""; c.Driver = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ue *UsageError
				if !errors.As(err, &ue) {
					t.Errorf("Validate() error %T is not *UsageError", err)
				}
			}
		})
	}
}

func TestValidate_NormalizesImageExt(t *testing.T) {
	cfg := validConfig()
	cfg.ImageExt = "jpg"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".jpg", cfg.ImageExt)
}

func TestEffectivePattern(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultConvertPattern, cfg.EffectivePattern())

	cfg.Render = true
	assert.Equal(t, DefaultRenderPattern, cfg.EffectivePattern())

	cfg.Pattern = "*.io"
	assert.Equal(t, "*.io", cfg.EffectivePattern())
}

func TestParseProperty(t *testing.T) {
	p, err := ParseProperty("scene.lu_toolbox.use_gpu_process=True")
	require.NoError(t, err)
	assert.Equal(t, "scene.lu_toolbox.use_gpu_process", p.Key)
	assert.Equal(t, "True", p.Value)

	p, err = ParseProperty("expr=a=b")
	require.NoError(t, err)
	assert.Equal(t, "a=b", p.Value, "only the first '=' splits")

	p, err = ParseProperty("empty=")
	require.NoError(t, err)
	assert.Equal(t, "", p.Value)

	_, err = ParseProperty("novalue")
	assert.Error(t, err)
	_, err = ParseProperty("=x")
	assert.Error(t, err)
}

func TestParseFlags_Full(t *testing.T) {
	cfg := DefaultConfig()
	err := ParseFlags(&cfg, []string{
		"--input", "models/",
		"--output", "out/",
		"--driver", "drv.py",
		"--device", "OPTIX",
		"--recursive",
		"--jobs", "4",
		"--import-op", "import_scene.importldd",
		"--process-prop", "a.b=1",
		"--process-prop", "c.d=2",
		"--bake-prop", "e=3",
		"--extra-driver-args", `--flag "two words"`,
		"--timeout", "90s",
		"--stray", "NIF, junk.tmp",
		"--no-color",
	}, "test")
	require.NoError(t, err)

	assert.Equal(t, "models/", cfg.Input)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, device.OptiX, cfg.Device)
	assert.True(t, cfg.Recursive)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, "import_scene.importldd", cfg.ImportOp)
	assert.Equal(t, []Property{{"a.b", "1"}, {"c.d", "2"}}, cfg.ProcessProps)
	assert.Equal(t, []Property{{"e", "3"}}, cfg.BakeProps)
	assert.Equal(t, []string{"--flag", "two words"}, cfg.ExtraArgs)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"NIF", "junk.tmp"}, cfg.StrayNames)
	assert.Equal(t, ColorNever, cfg.ColorMode)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--nope"}},
		{"bad device", []string{"--device", "metal"}},
		{"bad property", []string{"--bake-prop", "novalue"}},
		{"bad extra args", []string{"--extra-driver-args", `"unterminated`}},
		{"two positionals", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := ParseFlags(&cfg, tt.args, "test")
			var ue *UsageError
			if !errors.As(err, &ue) {
				t.Errorf("ParseFlags(%v) = %v, want *UsageError", tt.args, err)
			}
		})
	}
}

func TestParseFlags_PositionalInput(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ParseFlags(&cfg, []string{"--jobs", "2", "model.lxf"}, "test"))
	assert.Equal(t, "model.lxf", cfg.Input)
}

func TestParseFlags_Version(t *testing.T) {
	cfg := DefaultConfig()
	err := ParseFlags(&cfg, []string{"--version"}, "test")
	assert.ErrorIs(t, err, ErrVersion)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("NIFBATCH_DRIVER=/from/file.py\nNIFBATCH_JOBS=3\n"), 0o644))

	t.Setenv(EnvHost, "/opt/blender/blender")
	t.Setenv(EnvDevice, "cuda")
	t.Setenv(EnvTimeout, "120")
	// godotenv never overrides variables that are already set; clear the
	// ones the file provides so its values apply.
	t.Setenv(EnvDriver, "")
	t.Setenv(EnvJobs, "")
	os.Unsetenv(EnvDriver)
	os.Unsetenv(EnvJobs)

	cfg := DefaultConfig()
	require.NoError(t, LoadEnv(&cfg, envFile))

	assert.Equal(t, "/opt/blender/blender", cfg.Host)
	assert.Equal(t, "/from/file.py", cfg.Driver)
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, device.CUDA, cfg.Device)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
}

func TestLoadEnv_MissingFileIsFine(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, LoadEnv(&cfg, filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadEnv_BadDevice(t *testing.T) {
	t.Setenv(EnvDevice, "metal")
	cfg := DefaultConfig()
	var ue *UsageError
	assert.ErrorAs(t, LoadEnv(&cfg, ""), &ue)
}

package splotd

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"reflect"

	bg "github.com/SSSOCPaulCote/blunderguard"
	yaml "gopkg.in/yaml.v2"
)

const (
	ErrInvalidBaudRate   = bg.Error("baud rate must be a positive integer")
	ErrInvalidWindowSize = bg.Error("window size must be a positive integer")
)

// Config is the object which will hold all of the config parameters
type Config struct {
	DefaultLogDir  bool   `yaml:"DefaultLogDir"`
	LogFileDir     string `yaml:"LogFileDir"`
	MaxLogFileSize int64  `yaml:"MaxLogFileSize"` // MB
	MaxLogFiles    int64  `yaml:"MaxLogFiles"`
	ConsoleOutput  bool   `yaml:"ConsoleOutput"`
	Port           string `yaml:"Port"`
	BaudRate       int64  `yaml:"BaudRate"`
	WindowSize     int64  `yaml:"WindowSize"`
	ExportDir      string `yaml:"ExportDir"`
	InfluxURL      string `yaml:"InfluxURL"`
	InfluxToken    string `yaml:"InfluxToken"`
	InfluxOrg      string `yaml:"InfluxOrg"`
	InfluxBucket   string `yaml:"InfluxBucket"`
}

// default_config returns the default configuration
// default_log_dir returns the default log directory
var (
	default_baud_rate   int64 = 115200
	default_window_size int64 = 100
	default_max_size    int64 = 10
	default_max_files   int64 = 3
	default_log_dir           = func() string {
		home_dir, err := os.UserHomeDir() // this should be OS agnostic
		if err != nil {
			log.Fatal(err)
		}
		return home_dir + "/.splotd"
	}
	default_config = func() Config {
		return Config{
			DefaultLogDir:  true,
			LogFileDir:     default_log_dir(),
			MaxLogFileSize: default_max_size,
			MaxLogFiles:    default_max_files,
			ConsoleOutput:  false,
			BaudRate:       default_baud_rate,
			WindowSize:     default_window_size,
			ExportDir:      ".",
		}
	}
)

// InitConfig returns the `Config` struct with either default values or values specified in `config.yaml`
func InitConfig() (Config, error) {
	filename, _ := filepath.Abs(default_log_dir() + "/config.yaml")
	config_file, err := ioutil.ReadFile(filename)
	if err != nil {
		return default_config(), nil
	}
	var config Config
	err = yaml.Unmarshal(config_file, &config)
	if err != nil {
		config = default_config()
	} else {
		// Need to check if any config parameters aren't defined in `config.yaml` and assign them a default value
		config = check_yaml_config(config)
	}
	return config, nil
}

// ValidateConfig enforces the construction-time contracts of the pipeline
func ValidateConfig(config Config) error {
	if config.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	if config.WindowSize <= 0 {
		return ErrInvalidWindowSize
	}
	return nil
}

// change_field changes the value of a specified field from the config struct
func change_field(field reflect.Value, new_value interface{}) {
	if field.IsValid() {
		if field.CanSet() {
			f := field.Kind()
			switch f {
			case reflect.String:
				if v, ok := new_value.(string); ok {
					field.SetString(v)
				}
			case reflect.Bool:
				if v, ok := new_value.(bool); ok {
					field.SetBool(v)
				}
			case reflect.Int64:
				if v, ok := new_value.(int64); ok {
					field.SetInt(v)
				}
			}
		}
	}
}

// check_yaml_config iterates over the Config struct fields and changes blank fields to default values
func check_yaml_config(config Config) Config {
	pv := reflect.ValueOf(&config)
	v := pv.Elem()
	field_names := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		field_name := field_names.Field(i).Name
		switch field_name {
		case "LogFileDir":
			if f.String() == "" {
				change_field(f, default_log_dir())
				dld := v.FieldByName("DefaultLogDir")
				change_field(dld, true)
			}
		case "MaxLogFileSize":
			if f.Int() == 0 {
				change_field(f, default_max_size)
			}
		case "MaxLogFiles":
			if f.Int() == 0 {
				change_field(f, default_max_files)
			}
		case "BaudRate":
			if f.Int() == 0 {
				change_field(f, default_baud_rate)
			}
		case "WindowSize":
			if f.Int() == 0 {
				change_field(f, default_window_size)
			}
		case "ExportDir":
			if f.String() == "" {
				change_field(f, ".")
			}
		}
	}
	return config
}

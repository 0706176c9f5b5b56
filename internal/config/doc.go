// Package config provides configuration management for the gcquality
// services and tools.
//
// # Configuration Sources
//
// Values are resolved in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (config.yaml or configs/config.yaml)
//	3. Built-in defaults (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern GCQ_<SECTION>_<FIELD>:
//
//	GCQ_SERVER_PORT=8080
//	GCQ_LOGGING_LEVEL=debug
//	GCQ_STORE_ENABLED=true
//	GCQ_CHEMISTRY_STANDARD_MASSMG=98.5
//
// # Chemistry
//
// Component windows can only be replaced from the YAML file:
//
//	chemistry:
//	  standard:
//	    component: heptane
//	    mass_mg: 103.8
//	    volume_ml: 10
//	  windows:
//	    - {component: heptane, t_min: 0.96, t_max: 0.99}
//	    - {component: fames, t_min: 6.5, t_max: 11.5}
//	    # monoglycerides, diglycerides and triglycerides are required too
//
// ChemistryConfig.EngineConfig turns the section into the immutable engine
// configuration and is checked at load time.
package config

// Package config loads the application configuration and the market
// catalog.
//
// # Configuration Sources
//
// Values are resolved in the following order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values from struct tags (lowest priority)
//
// Environment variables use the COT_ prefix followed by the section and
// field, for example:
//
//	COT_PATHS_ROOT=/srv/cot
//	COT_SERVER_PORT=8080
//	COT_LOGGING_LEVEL=debug
//	COT_COMPUTE_XLSX=true
//
// A file value that equals the type's zero value is treated as unset.
//
// # Markets
//
// markets.yaml lists the markets a run computes:
//
//	markets:
//	  - market_key: gold
//	    contract_code: "088691"
//	    category: Metals
//	    display_name: Gold (COMEX)
//
// Contract codes are normalized with CleanContractCode, so 88691 and
// "88691.0" both become "088691".
package config

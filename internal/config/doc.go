// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file next to the working directory is loaded first, so secrets such as
// the bot token can stay out of the YAML file:
//
//	telegram:
//	  token: ${TELEGRAM_BOT_TOKEN}
//	  admin_group_id: -1001234567890
package config

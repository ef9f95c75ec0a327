// Package validation checks configuration structs against their
// `validate` struct tags and reports failures as a single AppError.
//
//	type ProxySettings struct {
//	    Host string `mapstructure:"host" validate:"required"`
//	    Port int    `mapstructure:"port" validate:"min=1,max=65535"`
//	}
//	err := validation.Validate(settings)
//
// Field paths in messages use mapstructure key names, e.g. "client.proxy.port".
package validation

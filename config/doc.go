// Package config loads the YAML configuration of the gltf2image command.
//
//	renderer:
//	  queue_name: batch
//	  metrics: true
//	  timeout: 10s
//	job:
//	  width: 1024
//	  height: 768
//	  format: png
//	  repeat: 4
//	log:
//	  level: debug
//	  engine: true
//
// Values are validated with struct tags; errors are invalid input errors
// from package errors.
package config

package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for build spans, metrics and log records.
var (
	AttrSessionID = attribute.Key("build.session.id")
	AttrProject   = attribute.Key("build.project")

	AttrMojoGroupID     = attribute.Key("build.mojo.group_id")
	AttrMojoArtifactID  = attribute.Key("build.mojo.artifact_id")
	AttrMojoVersion     = attribute.Key("build.mojo.version")
	AttrMojoGoal        = attribute.Key("build.mojo.goal")
	AttrMojoExecutionID = attribute.Key("build.mojo.execution_id")
	AttrMojoPhase       = attribute.Key("build.mojo.phase")
	AttrMojoStatus      = attribute.Key("build.mojo.status")

	// https://opentelemetry.io/docs/specs/semconv/registry/attributes/cicd/
	AttrCICDTaskName      = attribute.Key("cicd.pipeline.task.name")
	AttrCICDTaskRunResult = attribute.Key("cicd.pipeline.task.run.result")
)

// Mojo status values.
const (
	StatusSuccess    = "success"
	StatusFailure    = "failure"
	StatusIncomplete = "incomplete"
)

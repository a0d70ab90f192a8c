// Package jenkinsclient provides the primary entry point for constructing a
// client that implements the jenkins.Jenkins interface.
//
// It layers configuration, HTTP transport and session handling on top of
// the entity interfaces and types defined in the jenkins package. Most
// applications import jenkinsclient to build a client, then navigate the
// returned jenkins.Jenkins to jobs, builds, nodes and the rest.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
//	  "github.com/fivetwenty-io/jenkins-client/pkg/jenkinsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Anonymous access.
//	  cli, err := jenkinsclient.NewWithURL(ctx, "https://ci.example.com")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with a user's API token and CSRF crumbs:
//	  cli, err = jenkinsclient.New(ctx, &jenkins.Config{
//	    BaseURL:  "https://ci.example.com",
//	    Username: "admin",
//	    APIToken: "11aa...",
//	    UseCrumb: true,
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  job, err := cli.Job(ctx, "nightly")
//	  if err != nil { log.Fatal(err) }
//
//	  inv, err := job.Invoke(ctx, jenkins.InvokeOptions{Block: true})
//	  if err != nil { log.Fatal(err) }
//	  _ = inv
//	}
//
// # TLS and development mode
//
// Config.SkipTLSVerify is honored only when JENKINS_DEV_MODE is set to
// "true" or "1", to avoid accidental insecure usage in production.
package jenkinsclient

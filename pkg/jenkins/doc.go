// Package jenkins defines the public surface of the Jenkins client: the
// entity interfaces of the object graph, the Document snapshot type, the
// error taxonomy, configuration and mutation events.
//
// Every entity (Jenkins, Job, Build, View, Node, QueueItem, ...) holds the
// snapshot returned by its last successful fetch. Snapshots are only
// replaced by an explicit Refresh or by a mutation that refreshes its
// parent; reads never hit the network implicitly. Cross references such as
// a build's upstream build are resolved by constructing new entities from
// URLs, so entities never own each other.
//
// Use pkg/jenkinsclient to create a client:
//
//	j, err := jenkinsclient.New(ctx, &jenkins.Config{
//		BaseURL:  "https://ci.example.com",
//		Username: "admin",
//		APIToken: os.Getenv("JENKINS_TOKEN"),
//	})
//	if err != nil {
//		return err
//	}
//	job, err := j.Job(ctx, "release")
//	inv, err := job.Invoke(ctx, jenkins.InvokeOptions{Block: true})
package jenkins

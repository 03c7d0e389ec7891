// Package navigator exports models into deployable formats.
//
// An export captures reference outputs of the source model over samples of a
// dataloader, converts the model into every requested format, verifies each
// artifact against the captured outputs and optionally profiles it. Artifacts
// and the status.yaml manifest land in a package directory:
//
//	srv := navigator.New()
//	manifest, err := srv.Export(ctx, &navigator.ExportRequest{
//	    Model:      model,
//	    Dataloader: dataloader.FromSlice(batches),
//	    Workdir:    "/tmp/navigator",
//	    ModelName:  "linear",
//	})
//
// Format branches run concurrently; a failing branch never affects its siblings.
package navigator

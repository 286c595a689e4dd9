package wiring

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"morpipe/internal/excite"
	"morpipe/internal/pipeline"
	"morpipe/internal/runstore"
)

var _ = ginkgo.Describe("Run", func() {
	ginkgo.It("assembles the package, persists the sparsity pattern, and records every phase", func() {
		outputDir := ginkgo.GinkgoT().TempDir()
		store, err := runstore.Open(filepath.Join(ginkgo.GinkgoT().TempDir(), "runs.db"))
		gomega.Expect(err).To(gomega.Succeed())
		defer store.Close()

		err = Run(context.Background(), testRecipe(outputDir), excite.Default(), DryRun("/finger", 5), store, pipeline.ModeCountAll)
		gomega.Expect(err).To(gomega.Succeed())

		gomega.Expect(filepath.Join(outputDir, "reduced_finger.py")).To(gomega.BeAnExistingFile())
		gomega.Expect(filepath.Join(outputDir, "data", "modes.txt")).To(gomega.BeAnExistingFile())

		nodes, err := os.ReadFile(filepath.Join(outputDir, "data", "listActiveNodes.txt"))
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(string(nodes)).To(gomega.Equal("0\n1\n2\n"))

		runs, err := store.ListRuns()
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(runs).To(gomega.HaveLen(1))
		gomega.Expect(runs[0].Status).To(gomega.Equal("done"))

		phases, err := store.PhasesForRun(runs[0].ID)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(phases).To(gomega.HaveLen(4))
	})

	ginkgo.It("rejects a mode count beyond what the extraction produced", func() {
		outputDir := ginkgo.GinkgoT().TempDir()

		err := Run(context.Background(), testRecipe(outputDir), excite.Default(), DryRun("/finger", 5), nil, 99)
		gomega.Expect(err).To(gomega.HaveOccurred())
		var cfgErr *pipeline.ConfigurationError
		gomega.Expect(errors.As(err, &cfgErr)).To(gomega.BeTrue())
	})
})

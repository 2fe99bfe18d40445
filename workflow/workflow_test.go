package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/ee-ingester/catalog"
	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/interface/catalog/catalogtest"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/airbusgeo/ee-ingester/workflow"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const pollInterval = 5 * time.Second

var _ = Describe("Workflow", func() {
	var (
		ctx       context.Context
		svc       *catalogtest.Service
		bucket    *countingBucket
		clock     *fakeClock
		journal   *memJournal
		publisher *MokePublisher
		logs      *observer.ObservedLogs
		tmpDir    string
		srcDir    string
		wf        *workflow.Workflow
	)

	newWorkflow := func(strict bool) *workflow.Workflow {
		return workflow.New(catalog.New(svc, ""), service.NewStager(bucket, 1), workflow.Options{
			Strict:       strict,
			PollInterval: pollInterval,
			Clock:        clock,
			Journal:      journal,
			Publisher:    publisher,
		})
	}

	failureLogs := func(taskID string) int {
		return logs.FilterMessageSnippet("Task ended with state").FilterField(zap.String("taskID", taskID)).Len()
	}

	BeforeEach(func() {
		core, obs := observer.New(zapcore.DebugLevel)
		logs = obs
		ctx = log.WithLogger(context.Background(), zap.New(core))

		var err error
		tmpDir, err = os.MkdirTemp("", "workflow")
		Expect(err).NotTo(HaveOccurred())
		srcDir = filepath.Join(tmpDir, "src")
		Expect(os.MkdirAll(srcDir, 0755)).To(Succeed())

		svc = catalogtest.New("users/me")
		bucket = newCountingBucket(filepath.Join(tmpDir, "bucket"))
		Expect(service.EnsureBucket(ctx, bucket)).To(Succeed())
		clock = newFakeClock()
		journal = newMemJournal()
		publisher = &MokePublisher{}
		wf = newWorkflow(false)
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Context("submitting an ingestion", func() {
		It("should resolve the asset and build the request", func() {
			tag := common.TagFromMillis(1577836800000)
			taskID, err := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "col/a", tag, common.BandsFromNames([]string{"b1", "b2"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(taskID).To(Equal("TASK1"))

			req := svc.Requests[taskID]
			Expect(req.ID).To(Equal("users/me/col/a"))
			Expect(req.SourceURI()).To(Equal("gs://mybucket/a.tif"))
			Expect(req.Properties).To(HaveKeyWithValue(common.PropTimeStart, int64(1577836800000)))
			Expect(req.Properties).To(HaveKeyWithValue(common.PropTimeEnd, int64(1577836800000)))
			Expect(req.Bands).To(Equal([]common.Band{{ID: "b1"}, {ID: "b2"}}))

			task, err := journal.Task(ctx, taskID)
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Asset).To(Equal("users/me/col/a"))
			Expect(task.State).To(Equal(common.StatePENDING))
		})

		It("should propagate the submission errors", func() {
			svc.SubmitErr = errors.New("quota exceeded")
			_, err := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)
			Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
			Expect(svc.CallsTo("StartIngestion")).To(Equal(1))
		})

		It("should wait when a timeout is given", func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING, common.StateCOMPLETED}
			taskID, err := wf.IngestAsset(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, time.Minute, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Polls[taskID]).To(Equal(2))
		})

		It("should not wait without timeout", func() {
			taskID, err := wf.IngestAsset(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, 0, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Polls[taskID]).To(Equal(0))
		})
	})

	Context("waiting for a task", func() {
		It("should return true after the task is completed", func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING, common.StateRUNNING, common.StateCOMPLETED}
			taskID, err := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)
			Expect(err).NotTo(HaveOccurred())

			start := clock.Now()
			ok, err := wf.WaitForTask(ctx, taskID, 300*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(svc.Polls[taskID]).To(Equal(3))
			Expect(clock.Now().Sub(start)).To(BeNumerically("<=", 3*pollInterval))

			task, _ := journal.Task(ctx, taskID)
			Expect(task.State).To(Equal(common.StateCOMPLETED))
			Expect(publisher.messages).To(HaveLen(1))
			var result common.Result
			Expect(json.Unmarshal(publisher.messages[0], &result)).To(Succeed())
			Expect(result).To(Equal(common.Result{TaskID: taskID, Asset: "users/me/a", State: common.StateCOMPLETED}))
		})

		It("should return false when the task fails", func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING, common.StateFAILED}
			svc.MessagesByAsset["users/me/a"] = "invalid file"
			taskID, _ := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)

			ok, err := wf.WaitForTask(ctx, taskID, 300*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(failureLogs(taskID)).To(Equal(1))
			task, _ := journal.Task(ctx, taskID)
			Expect(task.State).To(Equal(common.StateFAILED))
			Expect(task.Message).To(Equal("invalid file"))
		})

		It("should return false when the task is cancelled", func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateCANCELLED}
			taskID, _ := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)
			ok, err := wf.WaitForTask(ctx, taskID, 300*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should return an error when the task fails in strict mode", func() {
			wf = newWorkflow(true)
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateFAILED}
			svc.MessagesByAsset["users/me/a"] = "invalid file"
			taskID, _ := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)

			ok, err := wf.WaitForTask(ctx, taskID, 300*time.Second)
			Expect(ok).To(BeFalse())
			var errFailed workflow.ErrTaskFailed
			Expect(errors.As(err, &errFailed)).To(BeTrue())
			Expect(errFailed.Status.ErrorMessage).To(Equal("invalid file"))
			Expect(errFailed.Status.State).To(Equal(common.StateFAILED))
		})

		It("should time out", func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StatePENDING, common.StateRUNNING}
			taskID, _ := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)

			start := clock.Now()
			ok, err := wf.WaitForTask(ctx, taskID, 12*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(svc.Polls[taskID]).To(Equal(4))
			Expect(clock.Now().Sub(start)).To(Equal(15 * time.Second))
			Expect(publisher.messages).To(BeEmpty())
		})

		It("should return an error on timeout in strict mode", func() {
			wf = newWorkflow(true)
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING}
			taskID, _ := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)

			_, err := wf.WaitForTask(ctx, taskID, 12*time.Second)
			var errTimeout workflow.ErrTimeout
			Expect(errors.As(err, &errTimeout)).To(BeTrue())
			Expect(errTimeout.TaskIDs).To(Equal([]string{taskID}))
			Expect(errTimeout.Timeout).To(Equal(12 * time.Second))
		})

		It("should stop when the context is cancelled", func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING}
			taskID, _ := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := wf.WaitForTask(cctx, taskID, 300*time.Second)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("should propagate the polling errors", func() {
			taskID, _ := wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)
			svc.StatusErr = errors.New("unavailable")
			_, err := wf.WaitForTask(ctx, taskID, 300*time.Second)
			Expect(err).To(MatchError(ContainSubstring("unavailable")))
		})
	})

	Context("waiting for several tasks", func() {
		var taskA, taskB string
		BeforeEach(func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING, common.StateRUNNING, common.StateCOMPLETED}
			svc.StatesByAsset["users/me/b"] = []common.TaskState{common.StateRUNNING, common.StateFAILED}
			taskA, _ = wf.SubmitIngestion(ctx, "gs://mybucket/a.tif", "a", common.NoTemporalTag, nil)
			taskB, _ = wf.SubmitIngestion(ctx, "gs://mybucket/b.tif", "b", common.NoTemporalTag, nil)
		})

		It("should report the failures without error", func() {
			outcome, err := wf.WaitForTasks(ctx, []string{taskA, taskB}, 300*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.AllCompleted()).To(BeFalse())
			Expect(outcome.TaskIDs).To(Equal([]string{taskA, taskB}))
			Expect(outcome.States).To(Equal(map[string]common.TaskState{taskA: common.StateCOMPLETED, taskB: common.StateFAILED}))
			Expect(outcome.Failed()).To(Equal([]string{taskB}))
			Expect(outcome.Running()).To(BeEmpty())

			Expect(failureLogs(taskB)).To(Equal(1))
			Expect(svc.Polls[taskB]).To(Equal(2))
			Expect(svc.Polls[taskA]).To(Equal(3))
			Expect(publisher.messages).To(HaveLen(2))
		})

		It("should succeed when all the tasks are completed", func() {
			svc.StatesByAsset["users/me/b"] = []common.TaskState{common.StateCOMPLETED}
			outcome, err := wf.WaitForTasks(ctx, []string{taskA, taskB}, 300*time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.AllCompleted()).To(BeTrue())
		})

		It("should return the first failure in strict mode", func() {
			wf = newWorkflow(true)
			outcome, err := wf.WaitForTasks(ctx, []string{taskA, taskB}, 300*time.Second)
			var errFailed workflow.ErrTaskFailed
			Expect(errors.As(err, &errFailed)).To(BeTrue())
			Expect(errFailed.Status.ID).To(Equal(taskB))
			Expect(outcome.States[taskB]).To(Equal(common.StateFAILED))
		})

		It("should time out with all the tasks", func() {
			wf = newWorkflow(true)
			svc.StatesByAsset["users/me/b"] = []common.TaskState{common.StateRUNNING}
			outcome, err := wf.WaitForTasks(ctx, []string{taskA, taskB}, 12*time.Second)
			Expect(isErr[workflow.ErrTimeout](err)).To(BeTrue())
			var errTimeout workflow.ErrTimeout
			errors.As(err, &errTimeout)
			Expect(errTimeout.TaskIDs).To(Equal([]string{taskA, taskB}))
			Expect(outcome.Running()).To(Equal([]string{taskB}))
			Expect(outcome.AllCompleted()).To(BeFalse())
		})
	})

	Context("uploading a file", func() {
		var file string
		BeforeEach(func() {
			file = createLocalFiles(srcDir, "a.tif")[0]
		})

		It("should stage, ingest, set the acl and clean", func() {
			opts := workflow.DefaultUploadOptions()
			opts.Prefix = "staging"
			opts.Public = true
			outcome, err := wf.UploadSingle(ctx, file, "a", common.TagFromMillis(1000), opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.AllCompleted()).To(BeTrue())

			req := svc.Requests[outcome.TaskIDs[0]]
			Expect(req.SourceURI()).To(Equal(bucket.Prefix() + "staging/a.tif"))
			acl, _ := wf.ACL(ctx, "a")
			Expect(acl.AllUsersCanRead).To(BeTrue())
			Expect(bucket.deleted).To(Equal(map[string]int{"staging/a.tif": 1}))
			_, err = os.Stat(filepath.Join(bucket.Name(), "staging", "a.tif"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("should clean even if the submission fails", func() {
			svc.SubmitErr = errors.New("bad request")
			opts := workflow.DefaultUploadOptions()
			opts.Public = true
			outcome, err := wf.UploadSingle(ctx, file, "a", common.NoTemporalTag, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Rejected).To(Equal([]string{"a"}))
			Expect(outcome.AllCompleted()).To(BeFalse())
			Expect(bucket.deletions()).To(Equal(1))
			Expect(svc.CallsTo("SetACL")).To(Equal(0))
		})

		It("should set the acl even if the ingestion fails", func() {
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateFAILED}
			opts := workflow.DefaultUploadOptions()
			opts.Public = true
			outcome, err := wf.UploadSingle(ctx, file, "a", common.NoTemporalTag, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Failed()).To(HaveLen(1))
			Expect(svc.CallsTo("SetACL")).To(Equal(1))
			Expect(bucket.deletions()).To(Equal(1))
		})

		It("should log the wait errors in strict mode", func() {
			wf = newWorkflow(true)
			svc.StatesByAsset["users/me/a"] = []common.TaskState{common.StateRUNNING}
			opts := workflow.DefaultUploadOptions()
			opts.Timeout = 10 * time.Second
			outcome, err := wf.UploadSingle(ctx, file, "a", common.NoTemporalTag, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Running()).To(HaveLen(1))
			Expect(logs.FilterMessage("UploadSingle").Len()).To(Equal(1))
			Expect(bucket.deletions()).To(Equal(1))
		})

		It("should not wait nor clean if not requested", func() {
			outcome, err := wf.UploadSingle(ctx, file, "a", common.NoTemporalTag, workflow.UploadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Running()).To(HaveLen(1))
			Expect(svc.Polls[outcome.TaskIDs[0]]).To(Equal(0))
			Expect(bucket.deletions()).To(Equal(0))
			_, err = os.Stat(filepath.Join(bucket.Name(), "a.tif"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should fail without staging bucket", func() {
			wf = workflow.New(catalog.New(svc, ""), nil, workflow.Options{Clock: clock})
			_, err := wf.UploadSingle(ctx, file, "a", common.NoTemporalTag, workflow.DefaultUploadOptions())
			Expect(errors.Is(err, service.ErrNotInitialized)).To(BeTrue())
			Expect(service.Precondition(err)).To(BeTrue())
			Expect(svc.CallsTo("StartIngestion")).To(Equal(0))
		})

		It("should fail if the file does not exist", func() {
			_, err := wf.UploadSingle(ctx, filepath.Join(srcDir, "missing.tif"), "a", common.NoTemporalTag, workflow.DefaultUploadOptions())
			Expect(err).To(HaveOccurred())
			Expect(svc.CallsTo("StartIngestion")).To(Equal(0))
		})
	})

	Context("uploading files", func() {
		var files []string
		BeforeEach(func() {
			files = createLocalFiles(srcDir, "a.tif", "b.tif", "c.tif")
		})

		It("should preserve the order", func() {
			svc.StatesByAsset["users/me/col/b"] = []common.TaskState{common.StateRUNNING, common.StateFAILED}
			tags := []common.TemporalTag{common.TagFromMillis(1), common.TagFromMillis(2), common.TagFromMillis(3)}
			opts := workflow.DefaultUploadOptions()
			opts.Public = true
			assets, outcome, err := wf.UploadBatch(ctx, files, []string{"col/a", "col/b", "col/c"}, tags, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(assets).To(Equal([]string{"col/a", "col/b", "col/c"}))
			Expect(outcome.TaskIDs).To(Equal(svc.Submitted))
			Expect(outcome.AllCompleted()).To(BeFalse())
			Expect(outcome.Failed()).To(Equal([]string{outcome.TaskIDs[1]}))

			for i, taskID := range outcome.TaskIDs {
				req := svc.Requests[taskID]
				Expect(req.ID).To(Equal("users/me/" + assets[i]))
				Expect(req.SourceURI()).To(Equal(bucket.Prefix() + filepath.Base(files[i])))
				Expect(req.Properties[common.PropTimeStart]).To(Equal(int64(i + 1)))
			}
			Expect(svc.CallsTo("SetACL")).To(Equal(3))
			Expect(bucket.deletions()).To(Equal(3))
		})

		It("should log a submission error and go on with the other files", func() {
			svc.SubmitErrByAsset["users/me/col/b"] = errors.New("quota exceeded")
			opts := workflow.DefaultUploadOptions()
			opts.Public = true
			assets, outcome, err := wf.UploadBatch(ctx, files, []string{"col/a", "col/b", "col/c"}, nil, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(assets).To(HaveLen(3))
			Expect(outcome.TaskIDs).To(Equal(svc.Submitted))
			Expect(outcome.TaskIDs).To(HaveLen(2))
			for _, taskID := range outcome.TaskIDs {
				Expect(outcome.States[taskID]).To(Equal(common.StateCOMPLETED))
			}
			Expect(outcome.Rejected).To(Equal([]string{"col/b"}))
			Expect(outcome.AllCompleted()).To(BeFalse())
			Expect(svc.CallsTo("StartIngestion")).To(Equal(3))
			Expect(bucket.deletions()).To(Equal(3))
			Expect(svc.CallsTo("SetACL")).To(Equal(2))
			Expect(svc.ACLs["users/me/col/a"].AllUsersCanRead).To(BeTrue())
			Expect(svc.ACLs["users/me/col/c"].AllUsersCanRead).To(BeTrue())
			Expect(logs.FilterMessage("UploadBatch").FilterField(zap.String("asset", "col/b")).Len()).To(Equal(1))
		})

		It("should reject mismatching arguments", func() {
			_, _, err := wf.UploadBatch(ctx, files, []string{"a"}, nil, workflow.DefaultUploadOptions())
			Expect(err).To(HaveOccurred())
			_, _, err = wf.UploadBatch(ctx, files, []string{"a", "b", "c"}, []common.TemporalTag{common.NoTemporalTag}, workflow.DefaultUploadOptions())
			Expect(err).To(HaveOccurred())
			_, _, err = wf.UploadBatch(ctx, files, []string{"a", "b", "a"}, nil, workflow.DefaultUploadOptions())
			Expect(err).To(MatchError(ContainSubstring("duplicate asset a")))
			Expect(bucket.deletions()).To(Equal(0))
			Expect(svc.CallsTo("StartIngestion")).To(Equal(0))
		})

		It("should reject files staged to the same blob", func() {
			other := filepath.Join(tmpDir, "other")
			Expect(os.MkdirAll(other, 0755)).To(Succeed())
			same := createLocalFiles(other, "a.tif")[0]
			_, _, err := wf.UploadBatch(ctx, []string{files[0], same}, []string{"col/a", "col/a2"}, nil, workflow.DefaultUploadOptions())
			Expect(err).To(MatchError(ContainSubstring("same blob a.tif")))
			Expect(svc.CallsTo("StartIngestion")).To(Equal(0))
			Expect(bucket.deletions()).To(Equal(0))
		})

		It("should not wait with a zero timeout", func() {
			opts := workflow.DefaultUploadOptions()
			opts.Timeout = 0
			_, outcome, err := wf.UploadBatch(ctx, files, []string{"a", "b", "c"}, nil, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Running()).To(HaveLen(3))
			for _, taskID := range outcome.TaskIDs {
				Expect(svc.Polls[taskID]).To(Equal(0))
			}
		})
	})

	Context("staged objects", func() {
		It("should always be removable", func() {
			files := createLocalFiles(srcDir, "a.tif", "b.tif")
			staged, err := wf.Stager().Stage(ctx, files, "prefix")
			Expect(err).NotTo(HaveOccurred())
			Expect(wf.Stager().Remove(ctx, service.URIs(staged))).To(Succeed())
		})

		It("should reject a foreign uri", func() {
			err := wf.Stager().Remove(ctx, []string{"gs://other-bucket/x"})
			Expect(service.Precondition(err)).To(BeTrue())
			Expect(bucket.deletions()).To(Equal(0))
		})
	})
})

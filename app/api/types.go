package api

import (
	"github.com/feedgrove/feedgrove/app/database"
	"github.com/feedgrove/feedgrove/app/tasks"
)

type Handler struct {
	channelRepo database.ChannelRepository
	entryRepo   database.EntryRepository
	failureRepo database.FailureRepository
	scheduler   tasks.TaskSchedulerInterface
	newRefresh  func() tasks.TaskInterface
}

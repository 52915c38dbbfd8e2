package app

import (
	"github.com/vk/multiversego/internal/executor"
	"github.com/vk/multiversego/modules/echo"
	"github.com/vk/multiversego/modules/linfit"
)

// coreRunners is the definitive list of in-process runners that are
// compiled into the multiverse binary.
var coreRunners = []executor.Module{
	&echo.Module{},
	&linfit.Module{},
}

package train

import (
	"fmt"
	"os"

	"github.com/unixpickle/essentials"
)

// UnknownBLEU is the sentinel logged when a BLEU figure
// was not computed for a checkpoint.
const UnknownBLEU = -1

// A metricsLog appends tab-separated checkpoint rows to a
// file, writing the header row once when the file is
// created.
type metricsLog struct {
	path string
}

func (l *metricsLog) Append(epoch, updates int, trainLoss, devLoss,
	trainBLEU, devBLEU float64) error {
	info, err := os.Stat(l.path)
	fresh := err != nil || info.Size() == 0

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return essentials.AddCtx("append log", err)
	}
	defer f.Close()
	if fresh {
		_, err = fmt.Fprintf(f, "epoch\tupdate\tavg_train_loss\tavg_dev_loss\t"+
			"train_bleu\tdev_bleu\n")
		if err != nil {
			return essentials.AddCtx("append log", err)
		}
	}
	_, err = fmt.Fprintf(f, "%d\t%d\t%v\t%v\t%v\t%v\n", epoch, updates,
		trainLoss, devLoss, trainBLEU, devBLEU)
	if err != nil {
		return essentials.AddCtx("append log", err)
	}
	return nil
}

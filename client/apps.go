package client

import (
	"time"

	"github.com/cowby123/scrcpy-go/internal/devicemsg"
	"github.com/cowby123/scrcpy-go/internal/protocol"
	"github.com/cowby123/scrcpy-go/internal/queue"
)

// ListApps requests the installed-app list over the control socket and
// waits up to timeout for GET_APP_LIST's device-message reply. If no
// control socket is connected, or the in-band request times out, it falls
// back to the ADB-driven one-shot `list_apps=true` server invocation.
func (c *Connection) ListApps(timeout time.Duration) ([]devicemsg.App, error) {
	if c.sess.Sockets.Control != nil {
		c.controlQueue.Put(queue.Message{
			Kind:      protocol.TypeGetAppList,
			Payload:   protocol.EncodeEmpty(protocol.TypeGetAppList),
			Droppable: false,
		})

		select {
		case apps := <-c.appListCh:
			return apps, nil
		case <-time.After(timeout):
		}
	}

	raw, err := c.adbMgr.ListAppsViaADB(c.sess.Device.Serial, c.sess.Cfg.ClientVersion)
	if err != nil {
		return nil, err
	}

	apps := make([]devicemsg.App, len(raw))
	for i, a := range raw {
		apps[i] = devicemsg.App{Name: a.Name, Pkg: a.Package, System: a.System}
	}
	return apps, nil
}

package drm

import (
	"unsafe"

	"github.com/pixview/pixview/internal/ioctl"
)

// ioctl commands from <libdrm/drm.h>, type 'd'.
var (
	ioctlSetMaster        = ioctl.IO('d', 0x1e)
	ioctlDropMaster       = ioctl.IO('d', 0x1f)
	ioctlModeGetResources = ioctl.IOWR('d', 0xa0, unsafe.Sizeof(modeCardRes{}))
	ioctlModeGetCrtc      = ioctl.IOWR('d', 0xa1, unsafe.Sizeof(modeCrtc{}))
	ioctlModeSetCrtc      = ioctl.IOWR('d', 0xa2, unsafe.Sizeof(modeCrtc{}))
	ioctlModeGetEncoder   = ioctl.IOWR('d', 0xa6, unsafe.Sizeof(modeGetEncoder{}))
	ioctlModeGetConnector = ioctl.IOWR('d', 0xa7, unsafe.Sizeof(modeGetConnector{}))
	ioctlModeAddFB        = ioctl.IOWR('d', 0xae, unsafe.Sizeof(modeFBCmd{}))
	ioctlModeRmFB         = ioctl.IOWR('d', 0xaf, unsafe.Sizeof(uint32(0)))
	ioctlModeCreateDumb   = ioctl.IOWR('d', 0xb2, unsafe.Sizeof(modeCreateDumb{}))
	ioctlModeMapDumb      = ioctl.IOWR('d', 0xb3, unsafe.Sizeof(modeMapDumb{}))
	ioctlModeDestroyDumb  = ioctl.IOWR('d', 0xb4, unsafe.Sizeof(modeDestroyDumb{}))
)

// modeDisconnected is the connection state from <libdrm/drm_mode.h> that
// rules a connector out during selection.
const modeDisconnected = 2

// modeTypePreferred flags the mode the driver wants the display to run in.
const modeTypePreferred = 1 << 3

// modeCardRes mirrors struct drm_mode_card_res.
type modeCardRes struct {
	FBIDPtr         uint64
	CrtcIDPtr       uint64
	ConnectorIDPtr  uint64
	EncoderIDPtr    uint64
	CountFBs        uint32
	CountCrtcs      uint32
	CountConnectors uint32
	CountEncoders   uint32
	MinWidth        uint32
	MaxWidth        uint32
	MinHeight       uint32
	MaxHeight       uint32
}

// modeInfo mirrors struct drm_mode_modeinfo.
type modeInfo struct {
	Clock      uint32
	Hdisplay   uint16
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Hskew      uint16
	Vdisplay   uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	Vscan      uint16
	Vrefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

// modeGetConnector mirrors struct drm_mode_get_connector.
type modeGetConnector struct {
	EncodersPtr     uint64
	ModesPtr        uint64
	PropsPtr        uint64
	PropValuesPtr   uint64
	CountModes      uint32
	CountProps      uint32
	CountEncoders   uint32
	EncoderID       uint32
	ConnectorID     uint32
	ConnectorType   uint32
	ConnectorTypeID uint32
	Connection      uint32
	MmWidth         uint32
	MmHeight        uint32
	Subpixel        uint32
	Pad             uint32
}

// modeGetEncoder mirrors struct drm_mode_get_encoder.
type modeGetEncoder struct {
	EncoderID      uint32
	EncoderType    uint32
	CrtcID         uint32
	PossibleCrtcs  uint32
	PossibleClones uint32
}

// modeCrtc mirrors struct drm_mode_crtc.
type modeCrtc struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID           uint32
	FBID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             modeInfo
}

// modeFBCmd mirrors struct drm_mode_fb_cmd.
type modeFBCmd struct {
	FBID   uint32
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint32
	Depth  uint32
	Handle uint32
}

// modeCreateDumb mirrors struct drm_mode_create_dumb.
type modeCreateDumb struct {
	Height uint32
	Width  uint32
	Bpp    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

// modeMapDumb mirrors struct drm_mode_map_dumb.
type modeMapDumb struct {
	Handle uint32
	Pad    uint32
	Offset uint64
}

// modeDestroyDumb mirrors struct drm_mode_destroy_dumb.
type modeDestroyDumb struct {
	Handle uint32
}
